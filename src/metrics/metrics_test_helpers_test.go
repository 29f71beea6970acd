package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"capyviz/src/datamodels"
	"capyviz/src/ingest"
)

const sampleLog = `{"msg":"strategies","strategies":{"arb":{"name":"Arbitrage"}}}
{"msg":"price","time":1000,"price":{"price":1.5,"source_uri":"cetus:SUI/USDC"}}
{"msg":"strategy status","uri":"arb","time":1500,"data":{"arbitrage":1.0002}}
{"msg":"order","strategy":"arb","time":2000}
{"msg":"ramm pool state","ramm_id":"R1","time":3000,"data":{"SUI":10,"USDC":20}}
{"msg":"imb ratios","ramm_id":"R1","time":3000,"data":{"SUI":1.1,"USDC":0.9}}
`

func sampleDataset(t *testing.T) *datamodels.AggregatedDataset {
	t.Helper()
	ds, _, err := ingest.NewLogIngesterBuilder().Build().IngestReader(strings.NewReader(sampleLog))
	require.NoError(t, err)
	return ds
}
