package grading

// Rule maps the inclusive score range [Min, Max] to a letter grade.
// Points and Remarks are optional overrides of the standard tables.
type Rule struct {
	Grade   string   `json:"grade" toml:"grade"`
	Min     float64  `json:"min" toml:"min"`
	Max     float64  `json:"max" toml:"max"`
	Points  *float64 `json:"points,omitempty" toml:"points,omitempty"`
	Remarks *string  `json:"remarks,omitempty" toml:"remarks,omitempty"`
}

func (r Rule) matches(score float64) bool {
	return r.Min <= score && score <= r.Max
}

// Scale is a school's grading scale: an ordered list of rules where the first matching rule wins.
// Rules may overlap or leave gaps.
type Scale []Rule

// Evaluation is the outcome of resolving a score against a Scale.
//   - no score: both fields are nil
//   - no matching rule: LetterGrade is nil and Remarks is ""
type Evaluation struct {
	LetterGrade *string `json:"letter_grade"`
	Remarks     *string `json:"remarks"`
}

// Graded reports whether the evaluation resolved to a letter grade.
func (e Evaluation) Graded() bool { return e.LetterGrade != nil }

var (
	standardRemarks = map[string]string{
		"A+": "Excellent",
		"A":  "Excellent",
		"A-": "Excellent",
		"B+": "Very Good",
		"B":  "Very Good",
		"B-": "Good",
		"C+": "Good",
		"C":  "Good",
		"C-": "Satisfactory",
		"D+": "Pass",
		"D":  "Pass",
		"D-": "Pass",
		"E":  "Marginal Pass",
		"F":  "Fail",
	}

	standardPoints = map[string]float64{
		"A+": 4.0,
		"A":  4.0,
		"A-": 3.7,
		"B+": 3.3,
		"B":  3.0,
		"B-": 2.7,
		"C+": 2.3,
		"C":  2.0,
		"C-": 1.7,
		"D+": 1.3,
		"D":  1.0,
		"D-": 0.7,
		"E":  0.5,
		"F":  0.0,
	}
)

// DefaultScale is the scale used by schools without one of their own: A>=80, B>=70, C>=60, D>=50, F<50.
// Adjacent rules share their boundary; the higher grade is listed first so it wins the tie.
func DefaultScale() Scale {
	return Scale{
		{Grade: "A", Min: 80, Max: 100},
		{Grade: "B", Min: 70, Max: 80},
		{Grade: "C", Min: 60, Max: 70},
		{Grade: "D", Min: 50, Max: 60},
		{Grade: "F", Min: 0, Max: 50},
	}
}

// Match returns the first rule whose range contains score.
func (s Scale) Match(score float64) (Rule, bool) {
	for _, r := range s {
		if r.matches(score) {
			return r, true
		}
	}
	return Rule{}, false
}

// Evaluate resolves score to a letter grade and a remark.
func (s Scale) Evaluate(score *float64) Evaluation {
	if score == nil {
		return Evaluation{}
	}
	rule, ok := s.Match(*score)
	if !ok {
		empty := ""
		return Evaluation{Remarks: &empty}
	}
	letter := rule.Grade
	remark := StandardRemark(letter)
	if rule.Remarks != nil {
		remark = *rule.Remarks
	}
	return Evaluation{LetterGrade: &letter, Remarks: &remark}
}

// Points returns the grade points of an already resolved letter grade: the explicit points of the first rule
// carrying that grade when set, the standard table otherwise.
func (s Scale) Points(letter string) float64 {
	for _, r := range s {
		if r.Grade == letter {
			if r.Points != nil {
				return *r.Points
			}
			break
		}
	}
	return StandardPoints(letter)
}

// StandardRemark returns the remark of the standard table for letter, "" when unknown.
func StandardRemark(letter string) string {
	return standardRemarks[letter]
}

// StandardPoints returns the grade points of the standard table for letter, 0 when unknown.
func StandardPoints(letter string) float64 {
	return standardPoints[letter]
}
