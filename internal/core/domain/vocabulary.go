package domain

// SynonymRule appends Formal next to Informal when the query uses only the
// informal term.
type SynonymRule struct {
	Informal string `yaml:"informal"`
	Formal   string `yaml:"formal"`
}

// KeywordCluster adds Terms to the keyword set when any trigger occurs in the
// query.
type KeywordCluster struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Terms    []string `yaml:"terms"`
}

// Vocabulary is the static data behind query interpretation.
type Vocabulary struct {
	LatestKeywords []string         `yaml:"latest_keywords"`
	Synonyms       []SynonymRule    `yaml:"synonyms"`
	Clusters       []KeywordCluster `yaml:"clusters"`
	Phrases        []string         `yaml:"phrases"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		LatestKeywords: []string{
			"최신", "최근", "새로운", "가장", "신규", "업데이트",
			"이번주", "이번달", "오늘", "어제", "최신공지", "최근공지",
			"새공지", "최신공고", "최근공고", "새공고", "최신소식",
		},
		Synonyms: []SynonymRule{
			{Informal: "학비", Formal: "등록금"},
			{Informal: "등록비", Formal: "등록금"},
			{Informal: "학습비", Formal: "등록금"},
			{Informal: "납부", Formal: "등록금 납부"},
			{Informal: "장학", Formal: "장학금"},
			{Informal: "성적우수", Formal: "성적우수장학"},
			{Informal: "우수장학", Formal: "성적우수장학"},
			{Informal: "수강", Formal: "수강신청"},
			{Informal: "과목신청", Formal: "수강신청"},
			{Informal: "시험", Formal: "출석시험"},
			{Informal: "졸업", Formal: "졸업논문"},
			{Informal: "2학기", Formal: "2025학년도 2학기"},
			{Informal: "1학기", Formal: "2025학년도 1학기"},
		},
		Clusters: []KeywordCluster{
			{
				Name:     "recency",
				Triggers: []string{"최신", "최근", "새로운", "가장", "신규", "업데이트", "공지", "최신공지", "최근공지", "새공지"},
				Terms:    []string{"최신", "최근", "새로운", "신규", "업데이트", "공지", "최신공지", "최근공지", "새공지"},
			},
			{
				Name:     "tuition",
				Triggers: []string{"등록", "학비", "납부", "등록금"},
				Terms:    []string{"등록금", "학비", "납부", "수납", "등록비", "학습비", "등록금납부", "등록금안내", "등록금수납", "등록"},
			},
			{
				Name:     "scholarship",
				Triggers: []string{"장학", "성적우수", "성적", "우수"},
				Terms:    []string{"장학금", "장학생", "성적우수장학", "성적우수", "장학", "우수장학", "장학혜택", "장학선발", "장학안내"},
			},
			{
				Name:     "course_registration",
				Triggers: []string{"수강", "과목", "신청"},
				Terms:    []string{"수강신청", "과목신청", "수강", "과목", "신청", "수강안내", "신청안내", "수강방법"},
			},
			{
				Name:     "exam",
				Triggers: []string{"시험", "평가", "출석"},
				Terms:    []string{"시험", "출석시험", "평가", "시험안내", "시험일정", "기말시험", "중간시험", "시험방법"},
			},
			{
				Name:     "semester",
				Triggers: []string{"2025", "2학기", "1학기"},
				Terms:    []string{"2025학년도", "2025년", "2학기", "1학기", "2025학년도 2학기", "2025학년도 1학기"},
			},
		},
		Phrases: []string{
			"등록금 납부", "등록금 안내", "등록금납부안내",
			"장학금 선발", "성적우수장학", "장학생 선발",
			"수강신청", "과목신청", "수강 안내",
			"시험 안내", "출석시험", "시험일정",
			"2025학년도 2학기", "2학기", "2025년 2학기",
		},
	}
}
