package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
)

func optFloat(f *float64, format string) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf(format, *f)
}

func optString(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// report prints every term of a student's report, oldest first, followed by the cumulative GPA.
func (cli *commandLine) report(studentID, term string) error {
	rep, err := cli.gradingSvc.Report(context.Background(), studentID, term)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%s)\n", rep.Student.Name, rep.Student.Username)

	terms := make([]string, 0, len(rep.Terms))
	for key := range rep.Terms {
		terms = append(terms, key)
	}
	sort.Strings(terms)

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	for _, key := range terms {
		tr := rep.Terms[key]
		current := ""
		if key == rep.CurrentTerm.Term {
			current = " (current)"
		}
		fmt.Fprintf(w, "\nTerm %s%s\n", key, current)
		fmt.Fprintln(w, "CODE\tTITLE\tCREDITS\tSCORE\tGRADE\tPOINTS\tREMARKS")
		for _, c := range tr.Courses {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				c.Code, c.Title, c.CreditHours, optFloat(c.Score, "%g"), optString(c.LetterGrade),
				optFloat(c.GradePoints, "%.2f"), optString(c.Remarks))
		}
		fmt.Fprintf(w, "GPA: %s over %d credits\n", optFloat(tr.GPA, "%.2f"), tr.TotalCredits)
	}
	fmt.Fprintf(w, "\nCumulative GPA: %s over %d credits\n", optFloat(rep.CumulativeGPA, "%.2f"), rep.TotalCredits)
	return w.Flush()
}

