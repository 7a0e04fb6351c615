package services

import (
	"context"
	"testing"
	"time"

	"github.com/privsys/ropa-registry/modules/fields/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

func TestFromProposalCopiesOptions(t *testing.T) {
	now := time.Now().UTC()
	p := types.FieldProposal{
		ProposalID: "p1",
		FieldName:  "Risk Level",
		Category:   types.CategorySecurity,
		Kind:       types.FieldKindSingleSelect,
		Options:    []string{"Low", "Medium", "High"},
		Required:   true,
	}

	f := FromProposal(p, "f1", now)
	if f.FieldID != "f1" || f.ProposalID != "p1" || !f.ApprovedAt.Equal(now) {
		t.Fatalf("field=%+v", f)
	}
	if !f.Required || f.Kind != types.FieldKindSingleSelect {
		t.Fatalf("field=%+v", f)
	}

	// Mutating the proposal slice afterwards must not reach the catalog row.
	p.Options[0] = "mutated"
	if f.Options[0] != "Low" {
		t.Fatalf("options=%v", f.Options)
	}
}

func TestListByCategoryIncludesEmptyGroups(t *testing.T) {
	store := newMemStore()
	store.fields = []types.ApprovedField{
		{FieldID: "f1", FieldName: "DPO Sign-off", Category: types.CategorySecurity},
		{FieldID: "f2", FieldName: "Archive Location", Category: types.CategoryRetention},
		{FieldID: "f3", FieldName: "Pen Test Date", Category: types.CategorySecurity},
	}
	svc := NewCatalogService(store)

	grouped, err := svc.ListByCategory(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(grouped) != len(types.Categories()) {
		t.Fatalf("groups=%d", len(grouped))
	}
	if got := grouped[types.CategoryProcessing]; got == nil || len(got) != 0 {
		t.Fatalf("empty category = %v", got)
	}
	sec := grouped[types.CategorySecurity]
	if len(sec) != 2 || sec[0].FieldID != "f1" || sec[1].FieldID != "f3" {
		t.Fatalf("security group = %+v", sec)
	}
}

func TestCatalogGet(t *testing.T) {
	store := newMemStore()
	store.fields = []types.ApprovedField{{FieldID: "f1", FieldName: "DPO Sign-off", Category: types.CategorySecurity}}
	svc := NewCatalogService(store)

	f, err := svc.Get(context.Background(), "f1")
	if err != nil || f.FieldName != "DPO Sign-off" {
		t.Fatalf("field=%+v err=%v", f, err)
	}

	_, err = svc.Get(context.Background(), "missing")
	if !httperr.IsNotFound(err) || err.Error() != errFieldNotFound {
		t.Fatalf("err=%v", err)
	}
}
