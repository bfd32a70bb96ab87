package analysis

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// Default ranking sizes.
const (
	DefaultTopHandsets      = 10
	DefaultTopManufacturers = 3
	DefaultTopPerMaker      = 5
	DefaultTopTraffic       = 3
)

// ValueCount is one entry of a value frequency table.
type ValueCount struct {
	Value string
	Count int
}

// TopValues counts the present values of a column and returns the n most
// frequent, by count descending then value ascending. n <= 0 returns all.
func TopValues(df dataframe.DataFrame, column string, n int) ([]ValueCount, error) {
	vals, missing, err := dataset.Strings(df, column)
	if err != nil {
		return nil, err
	}
	return countValues(vals, missing, nil, n), nil
}

func countValues(vals []string, missing []bool, keep func(int) bool, n int) []ValueCount {
	counts := make(map[string]int)
	for i, v := range vals {
		if missing[i] || (keep != nil && !keep(i)) {
			continue
		}
		counts[v]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopHandsets ranks handset types by session count.
func TopHandsets(df dataframe.DataFrame, n int) ([]ValueCount, error) {
	return TopValues(df, dataset.ColHandsetType, n)
}

// TopManufacturers ranks handset manufacturers by session count.
func TopManufacturers(df dataframe.DataFrame, n int) ([]ValueCount, error) {
	return TopValues(df, dataset.ColHandsetManufacturer, n)
}

// ManufacturerHandset is one row of the per-manufacturer handset ranking.
type ManufacturerHandset struct {
	Manufacturer string
	Handset      string
	Count        int
}

// TopHandsetsPerManufacturer returns the n most used handset types of each
// listed manufacturer, manufacturers in the order given.
func TopHandsetsPerManufacturer(df dataframe.DataFrame, manufacturers []string, n int) ([]ManufacturerHandset, error) {
	makers, noMaker, err := dataset.Strings(df, dataset.ColHandsetManufacturer)
	if err != nil {
		return nil, err
	}
	types, noType, err := dataset.Strings(df, dataset.ColHandsetType)
	if err != nil {
		return nil, err
	}
	var out []ManufacturerHandset
	for _, m := range manufacturers {
		top := countValues(types, noType, func(i int) bool {
			return !noMaker[i] && makers[i] == m
		}, n)
		for _, vc := range top {
			out = append(out, ManufacturerHandset{Manufacturer: m, Handset: vc.Value, Count: vc.Count})
		}
	}
	return out, nil
}

// HandsetTraffic is the summed traffic of one handset type.
type HandsetTraffic struct {
	Handset  string
	Download float64
	Upload   float64
}

// TopHandsetTraffic groups sessions by handset type, sums download and
// upload bytes, and returns the n types with the largest download.
func TopHandsetTraffic(df dataframe.DataFrame, n int) ([]HandsetTraffic, error) {
	types, noType, err := dataset.Strings(df, dataset.ColHandsetType)
	if err != nil {
		return nil, err
	}
	dl, err := dataset.Floats(df, dataset.ColTotalDL)
	if err != nil {
		return nil, err
	}
	ul, err := dataset.Floats(df, dataset.ColTotalUL)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]*HandsetTraffic)
	for i, t := range types {
		if noType[i] {
			continue
		}
		h, ok := byType[t]
		if !ok {
			h = &HandsetTraffic{Handset: t}
			byType[t] = h
		}
		h.Download += skipNaN(dl[i])
		h.Upload += skipNaN(ul[i])
	}
	out := make([]HandsetTraffic, 0, len(byType))
	for _, h := range byType {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Download != out[j].Download {
			return out[i].Download > out[j].Download
		}
		return out[i].Handset < out[j].Handset
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// GroupMean is the mean of a metric within one group.
type GroupMean struct {
	Group string
	Mean  float64
	Count int
}

// GroupMeans averages column per value of groupCol and returns the groups by
// ascending mean. Groups whose metric is entirely missing are omitted.
func GroupMeans(df dataframe.DataFrame, column, groupCol string) ([]GroupMean, error) {
	groups, noGroup, err := dataset.Strings(df, groupCol)
	if err != nil {
		return nil, err
	}
	vals, err := dataset.Floats(df, column)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[string][]float64)
	for i, g := range groups {
		if noGroup[i] || math.IsNaN(vals[i]) {
			continue
		}
		byGroup[g] = append(byGroup[g], vals[i])
	}
	out := make([]GroupMean, 0, len(byGroup))
	for g, xs := range byGroup {
		out = append(out, GroupMean{Group: g, Mean: stat.Mean(xs, nil), Count: len(xs)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean < out[j].Mean
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}
