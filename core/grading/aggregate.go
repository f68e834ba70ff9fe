package grading

import "github.com/trezcool/shule/core"

// AggregateTerm builds the report of a term from its courses and the student's grades (keyed by course ID).
// Only graded courses resolving to a letter grade and carrying credits count toward the GPA.
func AggregateTerm(term string, courses []Course, grades map[string]GradeRecord, scale Scale) TermReport {
	report := TermReport{
		Term:    term,
		Courses: make([]CourseReport, 0, len(courses)),
	}

	for _, c := range courses {
		cr := CourseReport{
			ID:          c.ID,
			Title:       c.Title,
			Code:        c.Code,
			CreditHours: c.CreditHours,
		}

		if rec, ok := grades[c.ID]; ok {
			rec := rec
			cr.Score = &rec.Score
			cr.GradeID = &rec.ID
			cr.GradedAt = &rec.CreatedAt

			eval := scale.Evaluate(cr.Score)
			cr.LetterGrade = eval.LetterGrade
			cr.Remarks = eval.Remarks
			if eval.Graded() {
				points := scale.Points(*eval.LetterGrade) * float64(c.CreditHours)
				cr.GradePoints = &points
				if c.CreditHours > 0 {
					report.points += points
					report.TotalCredits += c.CreditHours
				}
			}
		}
		report.Courses = append(report.Courses, cr)
	}

	report.TotalPoints = core.Round2(report.points)
	report.GPA = gpa(report.points, report.TotalCredits)
	return report
}

func gpa(points float64, credits int) *float64 {
	if credits <= 0 {
		return nil
	}
	v := core.Round2(points / float64(credits))
	return &v
}
