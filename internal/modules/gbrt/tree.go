package gbrt

import (
	"sort"

	"github.com/tarunbandi/repricer/pkg/formulas"
)

// node is a regression tree node. Leaves carry the mean residual of
// their rows; internal nodes route on feature <= threshold to the left.
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// growTree fits a regression tree on the residuals at the given rows.
// Split gains are accumulated into importances by feature.
func growTree(x [][]float64, residuals []float64, rows []int, depth, maxDepth, minLeaf int, importances []float64) *node {
	if depth >= maxDepth || len(rows) < 2*minLeaf {
		return leafNode(residuals, rows)
	}

	best, ok := bestSplit(x, residuals, rows, minLeaf)
	if !ok {
		return leafNode(residuals, rows)
	}

	importances[best.feature] += best.gain

	return &node{
		feature:   best.feature,
		threshold: best.threshold,
		left:      growTree(x, residuals, best.left, depth+1, maxDepth, minLeaf, importances),
		right:     growTree(x, residuals, best.right, depth+1, maxDepth, minLeaf, importances),
	}
}

func leafNode(residuals []float64, rows []int) *node {
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = residuals[r]
	}
	return &node{leaf: true, value: formulas.Mean(vals)}
}

// bestSplit scans every feature for the boundary maximizing the
// variance-reduction gain lN·lMean² + rN·rMean² − n·mean². Candidate
// boundaries require strictly different feature values and at least
// minLeaf rows on each side.
func bestSplit(x [][]float64, residuals []float64, rows []int, minLeaf int) (split, bool) {
	n := len(rows)

	var total float64
	for _, r := range rows {
		total += residuals[r]
	}
	mean := total / float64(n)
	baseScore := float64(n) * mean * mean

	var best split
	found := false

	order := make([]int, n)
	for f := 0; f < len(x[rows[0]]); f++ {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool {
			return x[order[i]][f] < x[order[j]][f]
		})

		var leftSum float64
		for i := 1; i < n; i++ {
			leftSum += residuals[order[i-1]]

			if x[order[i-1]][f] == x[order[i]][f] {
				continue
			}
			if i < minLeaf || n-i < minLeaf {
				continue
			}

			lN, rN := float64(i), float64(n-i)
			lMean := leftSum / lN
			rMean := (total - leftSum) / rN
			gain := lN*lMean*lMean + rN*rMean*rMean - baseScore

			if gain > 0 && (!found || gain > best.gain) {
				best = split{
					feature:   f,
					threshold: (x[order[i-1]][f] + x[order[i]][f]) / 2,
					gain:      gain,
					left:      append([]int(nil), order[:i]...),
					right:     append([]int(nil), order[i:]...),
				}
				found = true
			}
		}
	}

	return best, found
}
