package core

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Round2 rounds `x` to 2 decimal places, halves to even: 0.125 -> 0.12, 0.375 -> 0.38.
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// Getwd finds the project root, i.e. the closest parent directory holding go.mod.
// go-test changes the working directory to the package being tested, so os.Getwd alone is not enough.
// Falls back to the current directory when no go.mod is found (e.g. a deployed binary).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
