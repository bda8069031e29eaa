package analytics

import (
	"datapulse/internal/dataset"
	"datapulse/internal/schema"
)

// adPlatforms are the dataset types whose columns feed the ads totals.
var adPlatforms = []dataset.Type{
	dataset.TypeAdsMeta,
	dataset.TypeAdsGoogle,
	dataset.TypeAdsShopify,
}

// PlatformStat is one ad platform's contribution to the totals.
type PlatformStat struct {
	Platform dataset.Type
	Label    string
	Spend    float64
	Clicks   float64
	Revenue  float64
}

// AdsResult aggregates raw ad-platform columns across every loaded ads
// dataset plus the standard derived ratios. Every ratio is 0 when its
// denominator is, so the answer renders cleanly even on sparse exports.
type AdsResult struct {
	Spend       float64
	Impressions float64
	Clicks      float64
	Conversions float64
	Revenue     float64

	CTR  float64 // clicks / impressions x 100
	CPC  float64 // spend / clicks
	CPA  float64 // spend / conversions
	ROAS float64 // revenue / spend

	Platforms []PlatformStat
}

// Ads sums spend, impressions, clicks, conversions and revenue across
// whichever ad-platform datasets are loaded, then derives CTR, CPC, CPA and
// ROAS. With no ads data at all it returns a MissingDatasetError naming the
// Meta dataset as the representative upload.
func (a *Analyzer) Ads() (*AdsResult, error) {
	res := &AdsResult{}
	loaded := false

	for _, platform := range adPlatforms {
		ds := a.store.Get(platform)
		if ds.Len() == 0 {
			continue
		}
		loaded = true
		mapping := a.mappings.Get(platform)

		stat := PlatformStat{Platform: platform, Label: platform.Label()}
		if col, ok := schema.Resolve(ds, mapping, schema.FieldSpend); ok {
			stat.Spend = allRows(ds).sum(col)
		}
		if col, ok := schema.Resolve(ds, mapping, schema.FieldImpressions); ok {
			res.Impressions += allRows(ds).sum(col)
		}
		if col, ok := schema.Resolve(ds, mapping, schema.FieldClicks); ok {
			stat.Clicks = allRows(ds).sum(col)
		}
		if col, ok := schema.Resolve(ds, mapping, schema.FieldConversions); ok {
			res.Conversions += allRows(ds).sum(col)
		}
		if col, ok := schema.Resolve(ds, mapping, schema.FieldRevenue); ok {
			stat.Revenue = allRows(ds).sum(col)
		}

		res.Spend += stat.Spend
		res.Clicks += stat.Clicks
		res.Revenue += stat.Revenue
		res.Platforms = append(res.Platforms, stat)
	}

	if !loaded {
		return nil, &MissingDatasetError{Type: dataset.TypeAdsMeta}
	}

	res.CTR = ratio(res.Clicks, res.Impressions) * 100
	res.CPC = ratio(res.Spend, res.Clicks)
	res.CPA = ratio(res.Spend, res.Conversions)
	res.ROAS = ratio(res.Revenue, res.Spend)
	return res, nil
}
