package scheduler

import (
	"github.com/ikkim/marketplace-backend/internal/app/query"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

const reportTopN = 5

// CatalogSummarizer produces the dashboard statistics.
type CatalogSummarizer interface {
	GetCatalogSummary(topN int) (query.Summary, error)
}

// CatalogGauges receive the latest report figures. Either may be nil.
type CatalogGauges struct {
	Products prometheus.Gauge
	Clicks   prometheus.Gauge
}

// CatalogReportScheduler logs the catalog summary on a cron schedule.
type CatalogReportScheduler struct {
	cron       *cron.Cron
	spec       string
	summarizer CatalogSummarizer
	gauges     CatalogGauges
}

func NewCatalogReportScheduler(spec string, summarizer CatalogSummarizer, gauges CatalogGauges) *CatalogReportScheduler {
	return &CatalogReportScheduler{
		cron:       cron.New(),
		spec:       spec,
		summarizer: summarizer,
		gauges:     gauges,
	}
}

// Start registers the report job and starts the cron runner.
func (s *CatalogReportScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunReport() }); err != nil {
		logger.Error("Failed to add cron job for catalog report", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Catalog report scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunReport builds one summary, logs it and updates the gauges.
func (s *CatalogReportScheduler) RunReport() (query.Summary, error) {
	summary, err := s.summarizer.GetCatalogSummary(reportTopN)
	if err != nil {
		logger.Error("Failed to build catalog report", err)
		return query.Summary{}, err
	}

	top := make([]string, 0, len(summary.TopProducts))
	for _, p := range summary.TopProducts {
		top = append(top, p.Title)
	}

	logger.Info("Catalog report", map[string]interface{}{
		"total_products":    summary.TotalProducts,
		"in_stock_products": summary.InStockProducts,
		"total_clicks":      summary.TotalClicks,
		"categories":        len(summary.Categories),
		"top_products":      top,
	})

	if s.gauges.Products != nil {
		s.gauges.Products.Set(float64(summary.TotalProducts))
	}
	if s.gauges.Clicks != nil {
		s.gauges.Clicks.Set(float64(summary.TotalClicks))
	}

	return summary, nil
}

func (s *CatalogReportScheduler) Stop() {
	logger.Info("Stopping catalog report scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Catalog report scheduler stopped")
}
