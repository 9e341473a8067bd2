package news

import (
	"math"
	"sort"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
)

// Quota bounds how many Rights & Politics articles a selection reserves.
type Quota struct {
	Share float64
	Min   int
	Max   int
}

// DefaultQuota reserves 40% of a selection, at least 10 and at most 15.
var DefaultQuota = Quota{Share: 0.4, Min: 10, Max: 15}

// Target returns the politics allocation for a selection of n, never above n.
func (q Quota) Target(n int) int {
	t := int(math.Floor(float64(n) * q.Share))
	if t < q.Min {
		t = q.Min
	}
	if q.Max > 0 && t > q.Max {
		t = q.Max
	}
	if t > n {
		t = n
	}
	if t < 0 {
		t = 0
	}
	return t
}

// Balance picks up to n articles from pool. Rights & Politics gets the quota
// target first, the remaining slots are split evenly over the other
// categories, and anything still free is backfilled in pool order preferring
// known categories. Within a category newer articles go first. The result
// never exceeds n and never repeats an article.
func Balance(pool []Article, n int, q Quota) []Article {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	used := make([]bool, len(pool))
	out := make([]Article, 0, n)

	take := func(cat classify.Category, limit int) {
		var idx []int
		for i, a := range pool {
			if !used[i] && a.Category == cat {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(x, y int) bool {
			return pool[idx[x]].PublishedAt.After(pool[idx[y]].PublishedAt)
		})
		for _, i := range idx {
			if limit <= 0 || len(out) >= n {
				return
			}
			used[i] = true
			out = append(out, pool[i])
			limit--
		}
	}

	take(classify.Politics, q.Target(n))

	var others []classify.Category
	for _, c := range classify.AllCategories() {
		if c != classify.Politics {
			others = append(others, c)
		}
	}
	per := (n - len(out)) / len(others)
	for _, c := range others {
		take(c, per)
	}

	for pass := 0; pass < 2 && len(out) < n; pass++ {
		for i, a := range pool {
			if len(out) >= n {
				break
			}
			if used[i] {
				continue
			}
			if pass == 0 && !classify.Known(a.Category) {
				continue
			}
			used[i] = true
			out = append(out, a)
		}
	}
	return out
}

// Select produces the grid and a carousel drawn from what the grid left.
func Select(pool []Article, gridSize, carouselSize int, q Quota) (grid, carousel []Article) {
	grid = Balance(pool, gridSize, q)

	inGrid := make(map[string]bool, len(grid))
	for _, a := range grid {
		inGrid[a.Title] = true
	}
	rest := make([]Article, 0, len(pool)-len(grid))
	for _, a := range pool {
		if !inGrid[a.Title] {
			rest = append(rest, a)
		}
	}

	carousel = Balance(rest, carouselSize, q)
	return grid, carousel
}
