package policy

import (
	"context"
	"testing"

	"github.com/braincrm/api-gateway/internal/model"
)

func TestOperationValid(t *testing.T) {
	for _, op := range []Operation{OpRead, OpWrite, OpCreate, OpUnlink} {
		if !op.Valid() {
			t.Fatalf("%s should be valid", op)
		}
	}
	if Operation("truncate").Valid() {
		t.Fatal("unknown operation accepted")
	}
}

func TestStaticChecker(t *testing.T) {
	s := Static{}.
		Allow("crm.lead", OpRead, OpWrite).
		Allow("sale.order", OpRead)
	p := model.Principal{UserID: 1}

	if err := s.CheckAccess(context.Background(), p, "crm.lead", OpRead); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if err := s.CheckAccess(context.Background(), p, "crm.lead", OpUnlink); err != ErrDenied {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if err := s.CheckAccess(context.Background(), p, "product.template", OpRead); err != ErrDenied {
		t.Fatalf("unknown kind must be denied, got %v", err)
	}
}
