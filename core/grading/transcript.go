package grading

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// Builder builds academic reports. It never writes.
type Builder struct {
	dir          Directory
	grades       GradeRepository
	scales       ScaleRepository
	defaultScale Scale
}

func NewBuilder(dir Directory, grades GradeRepository, scales ScaleRepository, defaultScale Scale) *Builder {
	return &Builder{
		dir:          dir,
		grades:       grades,
		scales:       scales,
		defaultScale: defaultScale,
	}
}

// scaleFor returns the scale of the school, or the default one when the school has none. ok tells them apart.
func (b *Builder) scaleFor(ctx context.Context, schoolID string) (scale Scale, ok bool, err error) {
	scale, err = b.scales.GetScale(ctx, schoolID)
	switch {
	case err == nil:
		return scale, true, nil
	case errors.Cause(err) == ErrScaleNotFound:
		return b.defaultScale, false, nil
	default:
		return nil, false, errors.Wrap(err, "getting grading scale")
	}
}

// BuildReport builds the report of a student over every term they are enrolled in.
// The current term is `term` when the student has it, their latest term otherwise.
func (b *Builder) BuildReport(ctx context.Context, studentID, term string) (Report, error) {
	student, err := b.dir.GetStudent(ctx, studentID)
	if err != nil {
		return Report{}, notFound(errors.Wrap(err, "getting student"), ErrStudentNotFound)
	}

	termCourses, err := b.dir.StudentTerms(ctx, studentID)
	if err != nil {
		return Report{}, errors.Wrap(err, "listing student terms")
	}
	if len(termCourses) == 0 {
		return Report{}, core.NewNotFoundError(ErrNoEnrollment)
	}

	// the scale is read once so that every term is evaluated against the same version
	scale, _, err := b.scaleFor(ctx, student.SchoolID)
	if err != nil {
		return Report{}, err
	}

	records, err := b.grades.QueryStudentGrades(ctx, studentID)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying student grades")
	}
	grades := make(map[string]GradeRecord, len(records))
	for _, rec := range records {
		grades[rec.CourseID] = rec
	}

	// a student may take several classes in the same term
	coursesByTerm := make(map[string][]Course, len(termCourses))
	seen := make(map[string]bool)
	for _, tc := range termCourses {
		if _, ok := coursesByTerm[tc.Term.Key]; !ok {
			coursesByTerm[tc.Term.Key] = make([]Course, 0, len(tc.Courses))
		}
		for _, c := range tc.Courses {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			coursesByTerm[tc.Term.Key] = append(coursesByTerm[tc.Term.Key], c)
		}
	}

	keys := make([]string, 0, len(coursesByTerm))
	for key := range coursesByTerm {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	report := Report{
		Student: student,
		Terms:   make(map[string]TermReport, len(keys)),
	}
	var points float64
	for _, key := range keys {
		tr := AggregateTerm(key, coursesByTerm[key], grades, scale)
		report.Terms[key] = tr
		points += tr.points
		report.TotalCredits += tr.TotalCredits
	}
	report.TotalPoints = core.Round2(points)
	report.CumulativeGPA = gpa(points, report.TotalCredits)

	if tr, ok := report.Terms[term]; ok {
		report.CurrentTerm = tr
	} else {
		report.CurrentTerm = report.Terms[keys[len(keys)-1]]
	}
	return report, nil
}

// notFound turns a cause matching one of the sentinels into a *core.NotFoundError.
func notFound(err error, sentinels ...error) error {
	cause := errors.Cause(err)
	for _, s := range sentinels {
		if cause == s {
			return core.NewNotFoundError(s)
		}
	}
	return err
}
