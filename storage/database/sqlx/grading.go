package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

type ruleRow struct {
	Position int          `db:"position"`
	Grade    string       `db:"grade"`
	Min      float64      `db:"min_score"`
	Max      float64      `db:"max_score"`
	Points   null.Float64 `db:"points"`
	Remarks  null.String  `db:"remarks"`
}

type scaleRepository struct {
	db core.DB
}

var _ grading.ScaleRepository = (*scaleRepository)(nil)

func NewScaleRepository(db core.DB) grading.ScaleRepository {
	return &scaleRepository{db: db}
}

func (repo *scaleRepository) GetScale(ctx context.Context, schoolID string) (grading.Scale, error) {
	var rows []ruleRow
	q := `SELECT position, grade, min_score, max_score, points, remarks FROM grading_rules
		WHERE school_id = ? ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), schoolID); err != nil {
		return nil, errors.Wrap(err, "selecting grading rules")
	}
	if len(rows) == 0 {
		return nil, grading.ErrScaleNotFound
	}

	scale := make(grading.Scale, 0, len(rows))
	for _, row := range rows {
		scale = append(scale, grading.Rule{
			Grade:   row.Grade,
			Min:     row.Min,
			Max:     row.Max,
			Points:  row.Points.Ptr(),
			Remarks: row.Remarks.Ptr(),
		})
	}
	return scale, nil
}

// ReplaceScale swaps every rule of the school in a single transaction.
func (repo *scaleRepository) ReplaceScale(ctx context.Context, schoolID string, scale grading.Scale) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM grading_rules WHERE school_id = ?`), schoolID); err != nil {
			return errors.Wrap(err, "deleting grading rules")
		}
		q := tx.Rebind(`INSERT INTO grading_rules (school_id, position, grade, min_score, max_score, points, remarks)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		for i, r := range scale {
			_, err := tx.ExecContext(ctx, q,
				schoolID, i, r.Grade, r.Min, r.Max, null.Float64FromPtr(r.Points), null.StringFromPtr(r.Remarks))
			if err != nil {
				return errors.Wrapf(err, "inserting grading rule %d", i)
			}
		}
		return nil
	})
}

const gradeColumns = `id, student_id, course_id, score, graded_by, created_at, updated_at`

type gradeRepository struct {
	db core.DB
}

var _ grading.GradeRepository = (*gradeRepository)(nil)

func NewGradeRepository(db core.DB) grading.GradeRepository {
	return &gradeRepository{db: db}
}

func getGrade(ctx context.Context, exec core.DBExecutor, studentID, courseID string) (grading.GradeRecord, error) {
	var rec grading.GradeRecord
	q := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = ? AND course_id = ?`
	if err := exec.GetContext(ctx, &rec, exec.Rebind(q), studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return grading.GradeRecord{}, grading.ErrGradeNotFound
		}
		return grading.GradeRecord{}, errors.Wrap(err, "selecting grade")
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, studentID, courseID string) (grading.GradeRecord, error) {
	return getGrade(ctx, repo.db, studentID, courseID)
}

// UpsertGrade relies on the (student_id, course_id) unique constraint: a concurrent insert of the same key
// turns into an update instead of a duplicate.
func (repo *gradeRepository) UpsertGrade(ctx context.Context, rec grading.GradeRecord) (grading.GradeRecord, error) {
	rec.ID = uuid.New().String()
	q := `INSERT INTO grades (` + gradeColumns + `)
		VALUES (:id, :student_id, :course_id, :score, :graded_by, :created_at, :updated_at)
		ON CONFLICT (student_id, course_id) DO UPDATE
		SET score = excluded.score, graded_by = excluded.graded_by, updated_at = excluded.updated_at`

	var saved grading.GradeRecord
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := namedExec(ctx, tx, q, rec); err != nil {
			return errors.Wrap(err, "upserting grade")
		}
		var err error
		saved, err = getGrade(ctx, tx, rec.StudentID, rec.CourseID)
		return err
	})
	return saved, err
}

func (repo *gradeRepository) QueryStudentGrades(ctx context.Context, studentID string) ([]grading.GradeRecord, error) {
	records := make([]grading.GradeRecord, 0)
	q := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = ? ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &records, repo.db.Rebind(q), studentID); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}
	for i := range records {
		records[i].CreatedAt = records[i].CreatedAt.UTC()
		records[i].UpdatedAt = records[i].UpdatedAt.UTC()
	}
	return records, nil
}
