package grading

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// audit actions
const (
	ActionGradeSubmitted = "grade.submitted"
	ActionGradeRejected  = "grade.rejected"
	ActionScaleReplaced  = "grading_scale.replaced"
	ActionScaleRejected  = "grading_scale.rejected"
)

const gradePostedTemplate = "grade_posted"

type (
	Options struct {
		// DefaultScale applies to schools without a scale of their own.
		DefaultScale Scale
		Validate     *validator.Validate
		Translator   ut.Translator
		Logger       core.Logger
		MailSvc      core.EmailService // optional
		Audit        AuditRecorder     // optional
	}

	Service struct {
		scales  ScaleRepository
		grades  GradeRepository
		dir     Directory
		opts    Options
		builder *Builder
	}

	gradePostedData struct {
		CourseTitle string
		CourseCode  string
		Score       string
		LetterGrade string
		Remarks     string
	}
)

func NewService(scales ScaleRepository, grades GradeRepository, dir Directory, opts Options) *Service {
	if opts.DefaultScale == nil {
		opts.DefaultScale = DefaultScale()
	}
	return &Service{
		scales:  scales,
		grades:  grades,
		dir:     dir,
		opts:    opts,
		builder: NewBuilder(dir, grades, scales, opts.DefaultScale),
	}
}

func (svc *Service) audit(ctx context.Context, userID, action, details string) {
	if svc.opts.Audit != nil {
		svc.opts.Audit.Record(ctx, userID, action, details)
	}
}

func (svc *Service) validationError(err error, cause error) error {
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		vErr := core.TranslateValidationErrors(vErrs, svc.opts.Translator).(*core.ValidationError)
		vErr.Err = cause
		return vErr
	}
	return err
}

func (svc *Service) checkSchool(ctx context.Context, schoolID string) error {
	exists, err := svc.dir.SchoolExists(ctx, schoolID)
	if err != nil {
		return errors.Wrap(err, "checking school")
	}
	if !exists {
		return core.NewNotFoundError(ErrSchoolNotFound)
	}
	return nil
}

// Scale returns the current scale of a school. configured is false when the default scale applies.
func (svc *Service) Scale(ctx context.Context, schoolID string) (scale Scale, configured bool, err error) {
	if err := svc.checkSchool(ctx, schoolID); err != nil {
		return nil, false, err
	}
	return svc.builder.scaleFor(ctx, schoolID)
}

// ReplaceScale validates the whole input before swapping it in; an invalid input leaves the current scale untouched.
func (svc *Service) ReplaceScale(ctx context.Context, actorID, schoolID string, in ScaleInput) (Scale, error) {
	if err := svc.checkSchool(ctx, schoolID); err != nil {
		return nil, err
	}

	if err := in.Validate(svc.opts.Validate); err != nil {
		err = svc.validationError(err, ErrInvalidScale)
		svc.audit(ctx, actorID, ActionScaleRejected, fmt.Sprintf("school=%s: %v", schoolID, err))
		return nil, err
	}

	scale := in.Scale()
	if err := svc.scales.ReplaceScale(ctx, schoolID, scale); err != nil {
		return nil, errors.Wrap(err, "replacing grading scale")
	}
	svc.audit(ctx, actorID, ActionScaleReplaced, fmt.Sprintf("school=%s rules=%d", schoolID, len(scale)))
	return scale, nil
}

// RejectScale audits a scale input that could not even be decoded, cause being the decoding error.
// It returns the validation error to report, or the school lookup failure.
func (svc *Service) RejectScale(ctx context.Context, actorID, schoolID string, cause error) error {
	if err := svc.checkSchool(ctx, schoolID); err != nil {
		return err
	}
	svc.audit(ctx, actorID, ActionScaleRejected, fmt.Sprintf("school=%s: %s: %v", schoolID, ErrInvalidScale, cause))
	return core.NewValidationError(ErrInvalidScale)
}

// SubmitGrade records the score of a student in a course, creating or updating their grade.
// The grader must be allowed to grade the course. Every outcome is audited.
func (svc *Service) SubmitGrade(ctx context.Context, ng NewGrade) (GradeView, error) {
	view, err := svc.submitGrade(ctx, &ng)
	if err != nil {
		svc.audit(ctx, ng.GradedBy, ActionGradeRejected,
			fmt.Sprintf("student=%s course=%s: %v", ng.StudentID, ng.CourseID, err))
		return GradeView{}, err
	}
	svc.audit(ctx, ng.GradedBy, ActionGradeSubmitted,
		fmt.Sprintf("student=%s course=%s score=%s", view.StudentID, view.CourseID, formatScore(view.Score)))
	return view, nil
}

func (svc *Service) submitGrade(ctx context.Context, ng *NewGrade) (GradeView, error) {
	if err := ng.Validate(svc.opts.Validate); err != nil {
		return GradeView{}, svc.validationError(err, nil)
	}

	student, err := svc.dir.GetStudent(ctx, ng.StudentID)
	if err != nil {
		return GradeView{}, notFound(errors.Wrap(err, "getting student"), ErrStudentNotFound)
	}
	course, err := svc.dir.GetCourse(ctx, ng.CourseID)
	if err != nil {
		return GradeView{}, notFound(errors.Wrap(err, "getting course"), ErrCourseNotFound)
	}
	ok, err := svc.dir.CanGrade(ctx, ng.GradedBy, course.ID)
	if err != nil {
		return GradeView{}, errors.Wrap(err, "checking grader")
	}
	if !ok {
		return GradeView{}, core.NewPermissionError(ErrNotAssigned)
	}

	scale, _, err := svc.builder.scaleFor(ctx, student.SchoolID)
	if err != nil {
		return GradeView{}, err
	}

	now := time.Now().UTC()
	rec, err := svc.grades.UpsertGrade(ctx, GradeRecord{
		StudentID: student.ID,
		CourseID:  course.ID,
		Score:     *ng.Score,
		GradedBy:  ng.GradedBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return GradeView{}, errors.Wrap(err, "saving grade")
	}

	view := newGradeView(rec, course, scale)
	svc.notifyGradePosted(student, view)
	return view, nil
}

func (svc *Service) notifyGradePosted(student Student, view GradeView) {
	if svc.opts.MailSvc == nil {
		return
	}
	to, ok := student.address()
	if !ok {
		return
	}
	data := gradePostedData{
		CourseTitle: view.CourseTitle,
		CourseCode:  view.CourseCode,
		Score:       formatScore(view.Score),
	}
	if view.LetterGrade != nil {
		data.LetterGrade = *view.LetterGrade
	}
	if view.Remarks != nil {
		data.Remarks = *view.Remarks
	}
	svc.opts.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "New grade posted for " + view.CourseCode,
		TemplateName: gradePostedTemplate,
		TemplateData: data,
	})
}

// GetGrade returns the grade of a student in a course.
func (svc *Service) GetGrade(ctx context.Context, studentID, courseID string) (GradeView, error) {
	student, err := svc.dir.GetStudent(ctx, studentID)
	if err != nil {
		return GradeView{}, notFound(errors.Wrap(err, "getting student"), ErrStudentNotFound)
	}
	course, err := svc.dir.GetCourse(ctx, courseID)
	if err != nil {
		return GradeView{}, notFound(errors.Wrap(err, "getting course"), ErrCourseNotFound)
	}
	rec, err := svc.grades.GetGrade(ctx, student.ID, course.ID)
	if err != nil {
		return GradeView{}, notFound(errors.Wrap(err, "getting grade"), ErrGradeNotFound)
	}
	scale, _, err := svc.builder.scaleFor(ctx, student.SchoolID)
	if err != nil {
		return GradeView{}, err
	}
	return newGradeView(rec, course, scale), nil
}

// ListStudentGrades returns every grade of a student, evaluated against the current scale of their school.
func (svc *Service) ListStudentGrades(ctx context.Context, filter QueryFilter) ([]GradeView, error) {
	student, err := svc.dir.GetStudent(ctx, filter.StudentID)
	if err != nil {
		return nil, notFound(errors.Wrap(err, "getting student"), ErrStudentNotFound)
	}
	records, err := svc.grades.QueryStudentGrades(ctx, student.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student grades")
	}
	scale, _, err := svc.builder.scaleFor(ctx, student.SchoolID)
	if err != nil {
		return nil, err
	}

	views := make([]GradeView, 0, len(records))
	for _, rec := range records {
		if filter.CourseID != "" && rec.CourseID != filter.CourseID {
			continue
		}
		course, err := svc.dir.GetCourse(ctx, rec.CourseID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting course %s", rec.CourseID)
		}
		views = append(views, newGradeView(rec, course, scale))
	}
	return views, nil
}

// Report builds the academic report of a student. See Builder.BuildReport.
func (svc *Service) Report(ctx context.Context, studentID, term string) (Report, error) {
	return svc.builder.BuildReport(ctx, studentID, term)
}

func newGradeView(rec GradeRecord, course Course, scale Scale) GradeView {
	score := rec.Score
	return GradeView{
		GradeRecord: rec,
		CourseTitle: course.Title,
		CourseCode:  course.Code,
		Evaluation:  scale.Evaluate(&score),
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
