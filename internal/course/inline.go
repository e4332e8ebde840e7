package course

import "github.com/tmerle/sireader/internal/card"

// validateInline aligns the expected controls against the punch list with
// a full Levenshtein matrix, then traces it forward to decide per control
// whether it was punched.
//
// The trace is not a textbook alignment: the skip-is-worse branch compares
// a deletion against the overall edit cost. Changing these rules changes
// which control of an ambiguous pair is reported missing, so they stay
// exactly as they are.
func validateInline(c *Course, punches []card.Punch) *Result {
	filtered := make([]card.Punch, 0, len(punches))
	for _, p := range punches {
		if courseHas(c, p.Code) {
			filtered = append(filtered, p)
		}
	}

	m, n := len(c.Codes), len(filtered)
	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			sub := d[i-1][j-1]
			if c.Codes[i-1] != filtered[j-1].Code {
				sub++
			}
			if del := d[i-1][j] + 1; del < sub {
				sub = del
			}
			if ins := d[i][j-1] + 1; ins < sub {
				sub = ins
			}
			d[i][j] = sub
		}
	}
	total := d[m][n]

	controls := make([]ControlResult, 0, m)
	missing := 0
	miss := func(code uint16) {
		controls = append(controls, ControlResult{Code: code, Found: false, Time: card.NoTime})
		missing++
	}

	i, j := 0, 0
	for i < m && j < n {
		switch {
		case d[i+1][j+1] == d[i][j]:
			controls = append(controls, ControlResult{Code: c.Codes[i], Found: true, Time: filtered[j].Time})
			i++
			j++
		case !codeAfter(filtered, c.Codes[i], j):
			miss(c.Codes[i])
			i++
		case d[i][j+1] > total:
			miss(c.Codes[i])
			i++
		default:
			j++
		}
	}
	for ; i < m; i++ {
		miss(c.Codes[i])
	}

	return &Result{
		Course:       c,
		Controls:     controls,
		MissingCount: missing,
		Extras:       extraControls(c, punches),
		AllCorrect:   missing == 0,
	}
}

// codeAfter reports whether code occurs in punches at any index beyond j.
func codeAfter(punches []card.Punch, code uint16, j int) bool {
	for k := j + 1; k < len(punches); k++ {
		if punches[k].Code == code {
			return true
		}
	}
	return false
}
