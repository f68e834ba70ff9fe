package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/grading"
)

// errImportFailed is returned when at least one row of an import was rejected.
var errImportFailed = errors.New("some grades were not imported")

func parseScore(s string) (*float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, errors.Errorf("invalid score %q", s)
	}
	return &score, nil
}

func (cli *commandLine) graderID(ctx context.Context, uname string) (string, error) {
	grader, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return "", errors.Wrapf(err, "getting grader %s", uname)
	}
	return grader.ID, nil
}

func (cli *commandLine) submit(ctx context.Context, ng grading.NewGrade) (grading.GradeView, error) {
	view, err := cli.gradingSvc.SubmitGrade(ctx, ng)
	if err != nil {
		return view, describe(err, cli.translator)
	}
	return view, nil
}

func letter(view grading.GradeView) string {
	if view.LetterGrade == nil {
		return "-"
	}
	return *view.LetterGrade
}

func (cli *commandLine) grade(studentID, courseID, score, grader string) error {
	ctx := context.Background()
	sc, err := parseScore(score)
	if err != nil {
		return err
	}
	graderID, err := cli.graderID(ctx, grader)
	if err != nil {
		return err
	}

	view, err := cli.submit(ctx, grading.NewGrade{StudentID: studentID, CourseID: courseID, Score: sc, GradedBy: graderID})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s graded %g (%s) in %s\n", view.StudentID, view.Score, letter(view), view.CourseCode)
	return nil
}

// importGrades submits every `student_id,course_id,score` row of a CSV file. A header row is skipped.
// Rejected rows are reported and the import goes on.
func (cli *commandLine) importGrades(path, grader string) error {
	ctx := context.Background()
	graderID, err := cli.graderID(ctx, grader)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening grades file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var imported, failed int
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); !ok {
				return errors.Wrap(err, "reading grades file")
			}
			fmt.Fprintf(cli.out, "row %d: %v\n", line, err)
			failed++
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "student_id") {
			continue
		}

		score, err := parseScore(row[2])
		if err == nil {
			_, err = cli.submit(ctx, grading.NewGrade{StudentID: row[0], CourseID: row[1], Score: score, GradedBy: graderID})
		}
		if err != nil {
			fmt.Fprintf(cli.out, "row %d: %v\n", line, err)
			failed++
			continue
		}
		imported++
	}

	fmt.Fprintf(cli.out, "%d grades imported, %d rejected\n", imported, failed)
	if failed > 0 {
		return errImportFailed
	}
	return nil
}
