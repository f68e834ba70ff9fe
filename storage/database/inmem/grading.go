package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/grading"
)

type scaleRepository struct {
	db *scaleTable
}

var _ grading.ScaleRepository = (*scaleRepository)(nil)

func NewScaleRepository(db *DB) grading.ScaleRepository {
	return &scaleRepository{db: db.scale}
}

func (repo *scaleRepository) GetScale(_ context.Context, schoolID string) (grading.Scale, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scale, ok := repo.db.table[schoolID]
	if !ok {
		return nil, grading.ErrScaleNotFound
	}
	return copyScale(scale), nil
}

func (repo *scaleRepository) ReplaceScale(_ context.Context, schoolID string, scale grading.Scale) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[schoolID] = copyScale(scale)
	return nil
}

func copyScale(scale grading.Scale) grading.Scale {
	cp := make(grading.Scale, len(scale))
	copy(cp, scale)
	return cp
}

type gradeRepository struct {
	db *gradeTable
}

var _ grading.GradeRepository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grading.GradeRepository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) GetGrade(_ context.Context, studentID, courseID string) (grading.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[gradeKey{studentID, courseID}]; ok {
		return *rec, nil
	}
	return grading.GradeRecord{}, grading.ErrGradeNotFound
}

func (repo *gradeRepository) UpsertGrade(_ context.Context, rec grading.GradeRecord) (grading.GradeRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := gradeKey{rec.StudentID, rec.CourseID}
	if orig, ok := repo.db.table[key]; ok {
		orig.Score = rec.Score
		orig.GradedBy = rec.GradedBy
		orig.UpdatedAt = rec.UpdatedAt
		return *orig, nil
	}
	rec.ID = newID()
	repo.db.table[key] = &rec
	return rec, nil
}

func (repo *gradeRepository) QueryStudentGrades(_ context.Context, studentID string) ([]grading.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]grading.GradeRecord, 0)
	for key, rec := range repo.db.table {
		if key.studentID == studentID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}
