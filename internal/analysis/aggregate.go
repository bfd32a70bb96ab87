package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

type userAcc struct {
	key      string
	num      float64
	sessions int
	duration float64
	download float64
	upload   float64
}

// AggregateUserBehavior builds one row per IMSI with the session count and
// the summed duration, download and upload. Rows without an IMSI are
// dropped; missing measures are skipped in the sums.
func AggregateUserBehavior(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := dataset.RequireColumns(df, dataset.ColIMSI, dataset.ColBearerID,
		dataset.ColDuration, dataset.ColTotalDL, dataset.ColTotalUL); err != nil {
		return dataframe.DataFrame{}, err
	}
	keys, noKey, err := dataset.Strings(df, dataset.ColIMSI)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	numericKey := dataset.IsNumeric(df.Col(dataset.ColIMSI))
	noBearer, err := dataset.Missing(df, dataset.ColBearerID)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	dur, err := dataset.Floats(df, dataset.ColDuration)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	dl, err := dataset.Floats(df, dataset.ColTotalDL)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	ul, err := dataset.Floats(df, dataset.ColTotalUL)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	groups := make(map[string]*userAcc)
	for i, key := range keys {
		if noKey[i] {
			continue
		}
		acc, ok := groups[key]
		if !ok {
			acc = &userAcc{key: key}
			if numericKey {
				acc.num, _ = strconv.ParseFloat(key, 64)
			}
			groups[key] = acc
		}
		if !noBearer[i] {
			acc.sessions++
		}
		acc.duration += skipNaN(dur[i])
		acc.download += skipNaN(dl[i])
		acc.upload += skipNaN(ul[i])
	}

	users := make([]*userAcc, 0, len(groups))
	for _, acc := range groups {
		users = append(users, acc)
	}
	sort.Slice(users, func(i, j int) bool {
		if numericKey && users[i].num != users[j].num {
			return users[i].num < users[j].num
		}
		return users[i].key < users[j].key
	})

	n := len(users)
	imsiText := make([]string, n)
	imsiNum := make([]float64, n)
	sessions := make([]float64, n)
	duration := make([]float64, n)
	download := make([]float64, n)
	upload := make([]float64, n)
	volume := make([]float64, n)
	for i, u := range users {
		imsiText[i] = u.key
		imsiNum[i] = u.num
		sessions[i] = float64(u.sessions)
		duration[i] = u.duration
		download[i] = u.download
		upload[i] = u.upload
		volume[i] = u.download + u.upload
	}
	var imsi series.Series
	if numericKey {
		imsi = dataset.FloatSeries(dataset.ColIMSI, imsiNum)
	} else {
		imsi = dataset.TextSeries(dataset.ColIMSI, imsiText, nil)
	}
	out := dataframe.New(
		imsi,
		dataset.FloatSeries(dataset.ColSessions, sessions),
		dataset.FloatSeries(dataset.ColTotalDuration, duration),
		dataset.FloatSeries(dataset.ColTotalDownload, download),
		dataset.FloatSeries(dataset.ColTotalUpload, upload),
		dataset.FloatSeries(dataset.ColTotalDataVolume, volume),
	)
	return out, out.Err
}

// EngagementMetrics renames the user aggregate columns to the clustering
// feature names, keeping IMSI.
func EngagementMetrics(userAgg dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := dataset.RequireColumns(userAgg, dataset.ColIMSI, dataset.ColSessions,
		dataset.ColTotalDuration, dataset.ColTotalDataVolume); err != nil {
		return dataframe.DataFrame{}, err
	}
	rename := [][2]string{
		{dataset.ColSessions, dataset.ColSessionFrequency},
		{dataset.ColTotalDuration, dataset.ColSessionDuration},
		{dataset.ColTotalDataVolume, dataset.ColTotalTraffic},
	}
	cols := []series.Series{userAgg.Col(dataset.ColIMSI)}
	for _, r := range rename {
		vals, err := dataset.Floats(userAgg, r[0])
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		cols = append(cols, dataset.FloatSeries(r[1], vals))
	}
	out := dataframe.New(cols...)
	return out, out.Err
}

func skipNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
