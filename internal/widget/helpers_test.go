package widget_test

import (
	"context"
	"errors"

	"Widgets/internal/widget"
)

var errBoom = errors.New("boom")

// brokenStore fails every call, standing in for a store whose backend is down.
type brokenStore struct{}

func (brokenStore) List(context.Context) ([]widget.Widget, error) { return nil, errBoom }
func (brokenStore) FindByName(context.Context, string) (widget.Widget, bool, error) {
	return widget.Widget{}, false, errBoom
}
func (brokenStore) Upsert(context.Context, widget.Widget) (widget.Widget, error) {
	return widget.Widget{}, errBoom
}
func (brokenStore) UpsertAll(context.Context, []widget.Widget) ([]widget.Widget, error) {
	return nil, errBoom
}
func (brokenStore) DeleteByName(context.Context, string) ([]widget.Widget, bool, error) {
	return nil, false, errBoom
}
func (brokenStore) Update(context.Context, string, widget.Patch) (widget.Widget, bool, error) {
	return widget.Widget{}, false, errBoom
}
func (brokenStore) Len(context.Context) (int, error) { return 0, errBoom }
func (brokenStore) Ping(context.Context) error      { return errBoom }

func mkWidget(name, desc string, price float64) widget.Widget {
	return widget.Widget{Name: name, Description: widget.String(desc), Price: widget.Float(price)}
}

func desc(w widget.Widget) string {
	if w.Description == nil {
		return "<nil>"
	}
	return *w.Description
}

func price(w widget.Widget) float64 {
	if w.Price == nil {
		return -1
	}
	return *w.Price
}
