package metrics

import "github.com/prometheus/client_golang/prometheus"

// Bid outcomes used as the outcome label of marketplace_bids_total.
const (
	BidOutcomeAccepted = "accepted"
	BidOutcomeRejected = "rejected"
	BidOutcomeError    = "error"
)

// MarketplaceMetrics counts bidding and deal activity.
type MarketplaceMetrics struct {
	bids           *prometheus.CounterVec
	auctionsClosed *prometheus.CounterVec
	dealsCreated   *prometheus.CounterVec
	antiSnipe      prometheus.Counter
}

func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	m := &MarketplaceMetrics{
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_bids_total",
			Help: "Bid attempts by outcome.",
		}, []string{"outcome", "reason"}),
		auctionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_auctions_closed_total",
			Help: "Expired auctions processed by the closer, by result.",
		}, []string{"result"}),
		dealsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_deals_created_total",
			Help: "Deals created, by origin.",
		}, []string{"origin"}),
		antiSnipe: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_auction_extensions_total",
			Help: "Auction end extensions triggered by late bids.",
		}),
	}
	reg.MustRegister(m.bids, m.auctionsClosed, m.dealsCreated, m.antiSnipe)
	return m
}

// ObserveBid records one bid attempt. reason is empty for accepted bids.
func (m *MarketplaceMetrics) ObserveBid(outcome, reason string) {
	if m == nil || m.bids == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.bids.WithLabelValues(outcome, reason).Inc()
}

func (m *MarketplaceMetrics) IncAuctionClosed(result string) {
	if m == nil || m.auctionsClosed == nil {
		return
	}
	m.auctionsClosed.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *MarketplaceMetrics) IncDealCreated(origin string) {
	if m == nil || m.dealsCreated == nil {
		return
	}
	m.dealsCreated.WithLabelValues(normalizeLabel(origin)).Inc()
}

func (m *MarketplaceMetrics) IncAuctionExtended() {
	if m == nil || m.antiSnipe == nil {
		return
	}
	m.antiSnipe.Inc()
}
