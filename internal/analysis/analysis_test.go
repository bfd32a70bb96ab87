package analysis

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// table builds a frame from comma separated lines, the first being the header.
func table(t *testing.T, lines ...string) dataframe.DataFrame {
	t.Helper()
	records := make([][]string, len(lines))
	for i, l := range lines {
		records[i] = strings.Split(l, ",")
	}
	df, err := dataset.LoadRecords(records, dataset.DefaultOptions())
	require.NoError(t, err)
	return df
}

func floats(t *testing.T, df dataframe.DataFrame, col string) []float64 {
	t.Helper()
	vals, err := dataset.Floats(df, col)
	require.NoError(t, err)
	return vals
}

var xdrLines = []string{
	"Bearer Id,IMSI,Handset Manufacturer,Handset Type,Dur. (ms),Total DL (Bytes),Total UL (Bytes)",
	"1,300,Apple,Apple iPhone 6S,1000,500,100",
	"2,100,Apple,Apple iPhone 6S,2000,,200",
	"3,100,Samsung,Samsung Galaxy S8,,700,70",
	",20,Huawei,Huawei P20,400,300,30",
	"5,,Huawei,Huawei P20,400,300,30",
	"6,300,Apple,Apple iPhone 7,50,900,90",
}

func TestFillMissingWithMean(t *testing.T) {
	df := table(t,
		"a,b,label,empty",
		"1,10,x,",
		"2,,y,",
		"3,30,,",
		",20,z,",
	)
	out, err := FillMissingWithMean(df)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3, 2}, floats(t, out, "a"))
	assert.Equal(t, []float64{10, 20, 30, 20}, floats(t, out, "b"))

	_, missing, err := dataset.Strings(out, "label")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false}, missing, "text columns are untouched")

	for _, v := range floats(t, out, "empty") {
		assert.True(t, math.IsNaN(v), "entirely missing column stays missing")
	}
	// the input is not modified
	assert.True(t, math.IsNaN(floats(t, df, "a")[3]))
}

func TestDropMissing(t *testing.T) {
	df := table(t,
		"a,b,c",
		"1,2,x",
		",2,x",
		"1,,x",
		"1,2,",
		"4,5,y",
	)
	all, err := DropMissing(df)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Nrow())
	assert.Equal(t, []float64{1, 4}, floats(t, all, "a"))

	onlyA, err := DropMissing(df, "a")
	require.NoError(t, err)
	assert.Equal(t, 4, onlyA.Nrow())

	_, err = DropMissing(df, "nope")
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
}

func TestClipOutliersKeepsRowsWithinFences(t *testing.T) {
	df := table(t,
		"v,w,name",
		"1,5,a",
		"2,5,b",
		"3,,c",
		"4,5,d",
		"100,5,e",
		"-50,5,f",
	)
	f, err := OutlierFences(df, "v")
	require.NoError(t, err)

	out, err := ClipOutliers(df, "v", "w")
	require.NoError(t, err)
	assert.Equal(t, df.Nrow(), out.Nrow())

	for _, v := range floats(t, out, "v") {
		assert.GreaterOrEqual(t, v, f.Lower)
		assert.LessOrEqual(t, v, f.Upper)
	}
	clipped := floats(t, out, "v")
	assert.Equal(t, 2.0, clipped[1], "values inside the fences are unchanged")
	assert.Equal(t, f.Upper, clipped[4])
	assert.Equal(t, f.Lower, clipped[5])
	assert.True(t, math.IsNaN(floats(t, out, "w")[2]), "missing stays missing")

	_, err = ClipOutliers(df, "name")
	assert.ErrorIs(t, err, dataset.ErrNotNumeric)
	_, err = ClipOutliers(df, "nope")
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
}

func TestOutlierFencesUseLinearQuartiles(t *testing.T) {
	df := table(t, "v", "1", "2", "3", "4", "100")
	f, err := OutlierFences(df, "v")
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.Q1)
	assert.Equal(t, 4.0, f.Q3)
	assert.Equal(t, -1.0, f.Lower)
	assert.Equal(t, 7.0, f.Upper)
}

func TestAggregateUserBehavior(t *testing.T) {
	df := table(t, xdrLines...)
	agg, err := AggregateUserBehavior(df)
	require.NoError(t, err)

	require.Equal(t, 3, agg.Nrow(), "one row per distinct IMSI")
	assert.Equal(t, []float64{20, 100, 300}, floats(t, agg, dataset.ColIMSI), "numeric IMSI order")
	assert.Equal(t, []float64{0, 2, 2}, floats(t, agg, dataset.ColSessions))
	assert.Equal(t, []float64{400, 2000, 1050}, floats(t, agg, dataset.ColTotalDuration))
	assert.Equal(t, []float64{300, 700, 1400}, floats(t, agg, dataset.ColTotalDownload))
	assert.Equal(t, []float64{30, 270, 190}, floats(t, agg, dataset.ColTotalUpload))

	dl := floats(t, agg, dataset.ColTotalDownload)
	ul := floats(t, agg, dataset.ColTotalUpload)
	vol := floats(t, agg, dataset.ColTotalDataVolume)
	for i := range vol {
		assert.Equal(t, dl[i]+ul[i], vol[i])
	}

	_, err = AggregateUserBehavior(table(t, "IMSI,x", "1,2"))
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
}

func TestEngagementMetrics(t *testing.T) {
	agg, err := AggregateUserBehavior(table(t, xdrLines...))
	require.NoError(t, err)
	eng, err := EngagementMetrics(agg)
	require.NoError(t, err)
	assert.Equal(t, []string{dataset.ColIMSI, dataset.ColSessionFrequency, dataset.ColSessionDuration, dataset.ColTotalTraffic}, eng.Names())
	assert.Equal(t, floats(t, agg, dataset.ColTotalDataVolume), floats(t, eng, dataset.ColTotalTraffic))
}

func userTable(t *testing.T, durations []string, volumes []string) dataframe.DataFrame {
	t.Helper()
	lines := []string{"IMSI,total_duration,total_data_volume"}
	for i := range durations {
		lines = append(lines, strings.Join([]string{string(rune('a' + i)), durations[i], volumes[i]}, ","))
	}
	return table(t, lines...)
}

func TestSegmentByDecileEndsOfRange(t *testing.T) {
	df := userTable(t,
		[]string{"10", "20", "30", "40", "50", "60", "70", "80", "85", "90"},
		[]string{"100", "1", "1", "1", "1", "1", "1", "1", "1", "200"},
	)
	out, buckets, err := SegmentByDecile(df)
	require.NoError(t, err)
	deciles := floats(t, out, dataset.ColDecile)
	assert.Equal(t, 0.0, deciles[0], "shortest user in decile 0")
	assert.Equal(t, 9.0, deciles[9], "longest user in decile 9")

	require.Len(t, buckets, 10)
	assert.Equal(t, DecileBucket{Decile: 0, Users: 1, TotalDataVolume: 100, AvgDuration: 10}, buckets[0])
	assert.Equal(t, DecileBucket{Decile: 9, Users: 1, TotalDataVolume: 200, AvgDuration: 90}, buckets[9])
}

func TestSegmentByDecileSplitsAtPercentileEdges(t *testing.T) {
	durations := make([]string, 15)
	volumes := make([]string, 15)
	for i := range durations {
		durations[i] = strconv.Itoa(i + 1)
		volumes[i] = "1"
	}
	out, buckets, err := SegmentByDecile(userTable(t, durations, volumes))
	require.NoError(t, err)
	// edges 1, 2.4, 3.8, 5.2, 6.6, 8, 9.4, 10.8, 12.2, 13.6, 15
	assert.Equal(t, []float64{0, 0, 1, 2, 2, 3, 4, 4, 5, 6, 7, 7, 8, 9, 9}, floats(t, out, dataset.ColDecile))
	require.Len(t, buckets, 10)
	assert.Equal(t, DecileBucket{Decile: 7, Users: 2, TotalDataVolume: 2, AvgDuration: 11.5}, buckets[7])
}

func TestSegmentByDecileMergesTiedEdges(t *testing.T) {
	out, buckets, err := SegmentByDecile(userTable(t,
		[]string{"5", "5", "5", "5", "5", "5", "9", "5", "5", "5"},
		[]string{"1", "1", "1", "1", "1", "1", "1", "1", "1", "1"},
	))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 9, 0, 0, 0}, floats(t, out, dataset.ColDecile))
	require.Len(t, buckets, 2)
	assert.Equal(t, DecileBucket{Decile: 0, Users: 9, TotalDataVolume: 9, AvgDuration: 5}, buckets[0])
	assert.Equal(t, 9, buckets[1].Decile)
}

func TestSegmentByDecileSkipsMissingAndEmptyBuckets(t *testing.T) {
	out, buckets, err := SegmentByDecile(userTable(t,
		[]string{"3", "", "1", "2"},
		[]string{"30", "5", "10", "20"},
	))
	require.NoError(t, err)
	deciles := floats(t, out, dataset.ColDecile)
	assert.Equal(t, 9.0, deciles[0])
	assert.True(t, math.IsNaN(deciles[1]))
	assert.Equal(t, 0.0, deciles[2])
	assert.Equal(t, 4.0, deciles[3])

	require.Len(t, buckets, 3)
	for i := 1; i < len(buckets); i++ {
		assert.Less(t, buckets[i-1].Decile, buckets[i].Decile)
	}
	assert.Equal(t, 30.0, buckets[2].TotalDataVolume)
}

func TestCorrelationMatrix(t *testing.T) {
	df := table(t,
		"x,y,z,c,g",
		"1,2,4,7,a",
		"2,4,3,7,b",
		"3,6,2,7,c",
		"4,8,1,7,d",
		",10,,7,e",
	)
	m, err := CorrelationMatrix(df, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z", "c"}, m.Columns)

	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Columns {
			a, b := m.Values[i][j], m.Values[j][i]
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b))
				continue
			}
			assert.Equal(t, a, b)
		}
	}
	xy, _ := m.At("x", "y")
	assert.InDelta(t, 1, xy, 1e-12)
	xz, _ := m.At("x", "z")
	assert.InDelta(t, -1, xz, 1e-12)
	xc, _ := m.At("x", "c")
	assert.True(t, math.IsNaN(xc), "zero variance is undefined")

	top := m.TopPairs(1)
	require.Len(t, top, 1)
	assert.InDelta(t, 1, math.Abs(top[0].R), 1e-12)

	_, err = CorrelationMatrix(df, []string{"x", "g"})
	assert.ErrorIs(t, err, dataset.ErrNotNumeric)
}

func TestPCAPreservesDistancesIn2D(t *testing.T) {
	df := table(t,
		"a,b",
		"1,2",
		"2,1",
		"3,5",
		"4,3",
		"6,7",
	)
	res, err := PCA(df, []string{"a", "b"}, PCAOptions{})
	require.NoError(t, err)
	require.Len(t, res.Projection, 5)

	r := res.ExplainedVarianceRatio
	require.Len(t, r, 2)
	assert.GreaterOrEqual(t, r[0], r[1])
	for _, v := range r {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.InDelta(t, 1, r[0]+r[1], 1e-9)

	a := floats(t, df, "a")
	b := floats(t, df, "b")
	for i := 0; i < len(a); i++ {
		for j := i + 1; j < len(a); j++ {
			orig := math.Hypot(a[i]-a[j], b[i]-b[j])
			p := res.Projection
			got := math.Hypot(p[i][0]-p[j][0], p[i][1]-p[j][1])
			assert.InDelta(t, orig, got, 1e-9)
		}
	}
}

func TestPCARejectsBadInput(t *testing.T) {
	df := table(t, "a,b,c", "1,2,3", "2,,1", "3,1,2")
	_, err := PCA(df, []string{"a", "b"}, PCAOptions{})
	assert.ErrorIs(t, err, dataset.ErrMissingValues)

	_, err = PCA(df, []string{"a"}, PCAOptions{})
	assert.Error(t, err)

	one := table(t, "a,b", "1,2")
	_, err = PCA(one, []string{"a", "b"}, PCAOptions{})
	assert.Error(t, err)

	res, err := PCA(df, []string{"a", "c"}, PCAOptions{Standardize: true})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.ExplainedVarianceRatio[0]+res.ExplainedVarianceRatio[1], 1+1e-9)
}

func TestDescribe(t *testing.T) {
	df := table(t, "v,name,one", "1,a,5", "2,b,", "3,c,", "4,d,", ",e,")
	stats, err := Describe(df)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	v := stats[0]
	assert.Equal(t, "v", v.Name)
	assert.Equal(t, 4, v.Count)
	assert.Equal(t, 1, v.Missing)
	assert.InDelta(t, 2.5, v.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487, v.Std, 1e-9)
	assert.Equal(t, 1.0, v.Min)
	assert.InDelta(t, 1.75, v.Q25, 1e-12)
	assert.InDelta(t, 2.5, v.Median, 1e-12)
	assert.InDelta(t, 3.25, v.Q75, 1e-12)
	assert.Equal(t, 4.0, v.Max)

	one := stats[1]
	assert.Equal(t, 1, one.Count)
	assert.True(t, math.IsNaN(one.Std))
}

func TestHandsetRankings(t *testing.T) {
	df := table(t, xdrLines...)

	top, err := TopHandsets(df, 2)
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"Apple iPhone 6S", 2}, {"Huawei P20", 2}}, top)

	makers, err := TopManufacturers(df, 0)
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"Apple", 3}, {"Huawei", 2}, {"Samsung", 1}}, makers)

	per, err := TopHandsetsPerManufacturer(df, []string{"Apple", "Nokia"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []ManufacturerHandset{
		{Manufacturer: "Apple", Handset: "Apple iPhone 6S", Count: 2},
		{Manufacturer: "Apple", Handset: "Apple iPhone 7", Count: 1},
	}, per)

	traffic, err := TopHandsetTraffic(df, 2)
	require.NoError(t, err)
	assert.Equal(t, []HandsetTraffic{
		{Handset: "Apple iPhone 7", Download: 900, Upload: 90},
		{Handset: "Samsung Galaxy S8", Download: 700, Upload: 70},
	}, traffic)

	means, err := GroupMeans(df, dataset.ColDuration, dataset.ColHandsetManufacturer)
	require.NoError(t, err)
	assert.Equal(t, []GroupMean{
		{Group: "Huawei", Mean: 400, Count: 2},
		{Group: "Apple", Mean: 3050.0 / 3, Count: 3},
	}, means)
}
