package metric

import (
	"strconv"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/stats"
	"github.com/vhive-serverless/sensorcheck/pkg/verdict"
)

// LedgerRecord is one row of the result ledger. Fields are kept as text so that the
// fixed columns of existing rows survive a rewrite unchanged; any other column is dropped.
type LedgerRecord struct {
	TestStartingTime              string `csv:"Test starting time"`
	SensorName                    string `csv:"Sensor name"`
	SensorSerialNumber            string `csv:"Sensor Serial Number"`
	MinimumDataRateLimit          string `csv:"Minimum Data Rate Limit"`
	MaximumDataRateLimit          string `csv:"Maximum Data Rate Limit"`
	AverageDataRate               string `csv:"Average data rate"`
	MaximumStandardDeviationLimit string `csv:"Maximum Standard Deviation Limit"`
	StandardDeviation             string `csv:"Standard Deviation"`
	Errors                        string `csv:"Errors"`
	TestStatus                    string `csv:"Test status"`
	TestEndTime                   string `csv:"Test end time"`
}

var LedgerColumns = []string{
	"Test starting time",
	"Sensor name",
	"Sensor Serial Number",
	"Minimum Data Rate Limit",
	"Maximum Data Rate Limit",
	"Average data rate",
	"Maximum Standard Deviation Limit",
	"Standard Deviation",
	"Errors",
	"Test status",
	"Test end time",
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func NewLedgerRecord(result verdict.TestResult) *LedgerRecord {
	return &LedgerRecord{
		TestStartingTime:              result.Start.Format(common.LedgerTimeFormat),
		SensorName:                    result.SensorPartNumber,
		SensorSerialNumber:            result.SerialNumber,
		MinimumDataRateLimit:          formatFloat(result.MinDataRateLimit),
		MaximumDataRateLimit:          formatFloat(result.MaxDataRateLimit),
		AverageDataRate:               formatFloat(stats.Round(result.AverageDataRate, 2)),
		MaximumStandardDeviationLimit: formatFloat(result.MaxStdDevLimit),
		StandardDeviation:             formatFloat(stats.Round(result.StdDev, 2)),
		Errors:                        strconv.Itoa(result.Errors),
		TestStatus:                    string(result.Verdict),
		TestEndTime:                   result.End.Format(common.LedgerTimeFormat),
	}
}
