package domain

import "testing"

func TestNewOrder_RequiresCompleteFields(t *testing.T) {
	cases := []struct {
		name        string
		orderNumber string
		userID      string
		sku         string
		quantity    int
		price       float64
		wantErr     bool
	}{
		{"valid", "ORD-1", "u1", "sku-1", 2, 19.99, false},
		{"missing order number", "", "u1", "sku-1", 2, 19.99, true},
		{"missing user", "ORD-1", "", "sku-1", 2, 19.99, true},
		{"missing sku", "ORD-1", "u1", "", 2, 19.99, true},
		{"zero quantity", "ORD-1", "u1", "sku-1", 0, 19.99, true},
		{"negative price", "ORD-1", "u1", "sku-1", 1, -0.01, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := NewOrder(tc.orderNumber, tc.userID, tc.sku, tc.quantity, tc.price)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if o.Status != StatusCreated {
				t.Errorf("new order must start in CREATED, got %s", o.Status)
			}
		})
	}
}

func TestOrder_Lifecycle(t *testing.T) {
	o, err := NewOrder("ORD-1", "u1", "sku-1", 1, 9.99)
	if err != nil {
		t.Fatal(err)
	}

	if err := o.MarkAsPlaced(); err != nil {
		t.Fatalf("place from created: %v", err)
	}
	if o.Status != StatusPlaced {
		t.Errorf("expected PLACED, got %s", o.Status)
	}

	// 已下单的订单不能再次流转
	if err := o.MarkAsPlaced(); err == nil {
		t.Error("placing twice must fail")
	}

	o.MarkAsFailed()
	if o.Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", o.Status)
	}
}
