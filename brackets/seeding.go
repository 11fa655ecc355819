package brackets

import "math"

// bracketSize возвращает ближайшую сверху степень двойки.
func bracketSize(n int) int {
	if n <= 1 {
		return n
	}
	return 1 << uint(math.Ceil(math.Log2(float64(n))))
}

func numRounds(size int) int {
	if size < 2 {
		return 0
	}
	return int(math.Log2(float64(size)))
}

// seedOrder строит стандартный посев: позиция i содержит номер сида
// (0-based), так что сид 1 встречает слабейшего, а топ-сиды сходятся
// максимально поздно. Для size=8: [0 7 3 4 1 6 2 5].
func seedOrder(size int) []int {
	order := []int{0}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, s := range order {
			next = append(next, s, doubled-1-s)
		}
		order = next
	}
	return order
}

// node - слот стартовой решётки: команда, источник из предыдущего матча
// либо пустой bye-слот.
type node struct {
	teamID *int
	source *SlotSource
}

func (n *node) isBye() bool {
	return n == nil || (n.teamID == nil && n.source == nil)
}

func teamNode(id int) *node {
	return &node{teamID: &id}
}

func sourceNode(uid string, take SlotTake) *node {
	return &node{source: &SlotSource{MatchUID: uid, Take: take}}
}
