package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"autobill/backend/internal/billing"
	"autobill/backend/internal/cache"
	"autobill/backend/internal/domain"
	"autobill/backend/internal/invoice"
	"autobill/backend/internal/logger"
	"autobill/backend/internal/metrics"
	"autobill/backend/internal/store"
	"autobill/backend/internal/suggest"
)

var ErrItemNotFound = errors.New("line item not found")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// actorName is the signed-in user for log lines; requests outside the HTTP
// API (CLI, tests) have none.
func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return "system"
}

type Options struct {
	SuggestionTTL time.Duration
	// Now stamps invoices; defaults to time.Now.
	Now func() time.Time
}

// Service composes the billing calculator, the product catalog and the
// invoice renderer. The calculator and the catalog never call each other;
// only the service does.
type Service struct {
	catalog     store.Catalog
	suggestions *suggest.Engine
	tracker     *suggest.Tracker
	renderer    *invoice.Renderer
	now         func() time.Time
	log         *slog.Logger
}

func New(catalog store.Catalog, suggestionCache cache.SuggestionCache, renderer *invoice.Renderer, opts Options) *Service {
	if renderer == nil {
		renderer = invoice.NewRenderer(domain.ShopProfile{}, "")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		catalog:     catalog,
		suggestions: suggest.NewEngine(catalog, suggestionCache, opts.SuggestionTTL),
		tracker:     suggest.NewTracker(),
		renderer:    renderer,
		now:         now,
		log:         logger.For("service"),
	}
}

func (s *Service) ValidateItem(in domain.ItemInput) error {
	return billing.ValidateItemInput(in.ItemName, in.Quantity, in.ListPrice, in.Discount)
}

// AddLineItem validates in and materializes the line item. With record set,
// the item name is also saved to the catalog; a catalog failure is logged and
// leaves the returned result nil, it never rejects the line item.
func (s *Service) AddLineItem(ctx context.Context, in domain.ItemInput, record bool) (domain.LineItem, *domain.AddProductResult, error) {
	item, err := billing.AddLineItem(in)
	if err != nil {
		return domain.LineItem{}, nil, err
	}
	if !record {
		return item, nil, nil
	}

	res, err := s.RecordProduct(ctx, domain.ProductInput{
		ItemName:     item.ItemName,
		VehicleBrand: item.VehicleBrand,
		ListPrice:    item.ListPrice,
	})
	if err != nil {
		s.log.Warn("failed to record product in catalog", "item_name", item.ItemName, "error", err)
		return item, nil, nil
	}
	return item, &res, nil
}

func (s *Service) Totals(items []domain.LineItem, gstIncluded bool) domain.TotalsResponse {
	bill := billing.NewBill(items...)
	return totalsResponse(bill, gstIncluded)
}

// RemoveLineItem drops the item with req.ItemID from req.Items.
func (s *Service) RemoveLineItem(req domain.BillEditRequest) (domain.BillEditResponse, error) {
	next, ok := billing.NewBill(req.Items...).Remove(req.ItemID)
	if !ok {
		return domain.BillEditResponse{}, ErrItemNotFound
	}
	return domain.BillEditResponse{Items: next.Items(), Totals: totalsResponse(next, req.GSTIncluded)}, nil
}

// ReplaceLineItem rebuilds the item with req.ItemID from req.Input. The new
// record keeps the old id and position.
func (s *Service) ReplaceLineItem(req domain.BillEditRequest) (domain.BillEditResponse, error) {
	if req.Input == nil {
		return domain.BillEditResponse{}, &billing.ValidationError{Message: billing.MsgItemNameRequired}
	}
	item, err := billing.AddLineItem(*req.Input)
	if err != nil {
		return domain.BillEditResponse{}, err
	}
	item.ID = req.ItemID

	next, ok := billing.NewBill(req.Items...).Replace(req.ItemID, item)
	if !ok {
		return domain.BillEditResponse{}, ErrItemNotFound
	}
	return domain.BillEditResponse{Items: next.Items(), Totals: totalsResponse(next, req.GSTIncluded)}, nil
}

// SearchProducts answers an autocomplete lookup. A zero seq asks the service
// to sequence the query itself; the result is then marked Stale when a newer
// query has already been answered.
func (s *Service) SearchProducts(ctx context.Context, seq uint64, text string, limit int) (domain.SearchResult, error) {
	serverSeq := seq == 0
	if serverSeq {
		seq = s.tracker.Next()
	}

	products, err := s.suggestions.Suggest(ctx, text, limit)
	if err != nil {
		return domain.SearchResult{}, err
	}

	result := domain.SearchResult{Seq: seq, Query: text, Products: products}
	if serverSeq {
		result.Stale = !s.tracker.Accept(seq)
	}
	return result, nil
}

func (s *Service) RecordProduct(ctx context.Context, input domain.ProductInput) (domain.AddProductResult, error) {
	res, err := s.catalog.AddIfMissing(ctx, input)
	if err != nil {
		return domain.AddProductResult{}, err
	}

	if res.WasCreated {
		metrics.ProductsRecorded.WithLabelValues("created").Inc()
		s.suggestions.Invalidate(ctx)
		s.log.Info("product recorded", "product_id", res.Product.ID, "item_name", res.Product.ItemName, "actor", actorName(ctx))
	} else {
		metrics.ProductsRecorded.WithLabelValues("existing").Inc()
	}
	return res, nil
}

func (s *Service) ListInventory(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.LoadAll(ctx)
}

func (s *Service) BuildInvoice(ctx context.Context, req domain.InvoiceRequest) (domain.Invoice, error) {
	totals := billing.CalculateTotals(req.Items, req.GSTIncluded)
	inv, err := s.renderer.Render(req, totals, s.now())
	if err != nil {
		return domain.Invoice{}, err
	}

	metrics.InvoicesRendered.Inc()
	s.log.Info("invoice rendered", "bill_number", inv.BillNumber, "items", len(inv.Items), "payable", inv.Payable, "actor", actorName(ctx))
	return inv, nil
}

func totalsResponse(bill billing.Bill, gstIncluded bool) domain.TotalsResponse {
	totals := bill.Totals(gstIncluded)
	return domain.TotalsResponse{
		GrandTotal: totals.GrandTotal,
		TotalGST:   totals.TotalGST,
		Payable:    totals.Payable(),
		ItemCount:  bill.Len(),
	}
}
