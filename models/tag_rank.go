package models

import "sort"

// RankTags flattens the tag sequences of recipes, counts each tag and returns
// the n most frequent, ties broken by tag in ascending order.
func RankTags(recipes []Recipe, n int) []TagCount {
	counts := map[string]int64{}
	for _, r := range recipes {
		for _, t := range NormalizeTags(r.Tags) {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, c := range counts {
		out = append(out, TagCount{Tag: tag, Count: c})
	}
	return TopTagCounts(out, n)
}

// TopTagCounts sorts by count descending then tag ascending and keeps n.
func TopTagCounts(tc []TagCount, n int) []TagCount {
	if n <= 0 {
		return []TagCount{}
	}
	sort.Slice(tc, func(i, j int) bool {
		if tc[i].Count != tc[j].Count {
			return tc[i].Count > tc[j].Count
		}
		return tc[i].Tag < tc[j].Tag
	})
	if n < len(tc) {
		tc = tc[:n]
	}
	return tc
}
