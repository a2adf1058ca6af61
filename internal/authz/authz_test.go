package authz

import (
	"errors"
	"testing"
)

func TestAllowMatrix(t *testing.T) {
	cases := []struct {
		role Role
		op   Operation
		ok   bool
	}{
		{RoleConsumer, OpSelfRecharge, true},
		{RoleConsumer, OpPurchase, true},
		{RoleConsumer, OpSubscribe, true},
		{RoleConsumer, OpAgentCashIn, false},
		{RoleConsumer, OpManageProducts, false},
		{RoleMerchant, OpManageProducts, true},
		{RoleMerchant, OpViewOwnBalance, true},
		{RoleMerchant, OpPurchase, false},
		{RoleMerchant, OpAgentCashOut, false},
		{RoleAgent, OpAgentCashIn, true},
		{RoleAgent, OpAgentCashOut, true},
		{RoleAgent, OpAgentBillPayment, true},
		{RoleAgent, OpViewConsumerBalance, true},
		{RoleAgent, OpViewConsumerHistory, true},
		{RoleAgent, OpSelfRecharge, false},
		{RoleAgent, OpPurchase, false},
	}

	for _, tc := range cases {
		err := Allow(tc.role, tc.op)
		if tc.ok && err != nil {
			t.Errorf("Allow(%s, %s) = %v, want nil", tc.role, tc.op, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Allow(%s, %s) = %v, want ErrUnauthorized", tc.role, tc.op, err)
			}
		}
	}
}

func TestAllowUnknownRole(t *testing.T) {
	if err := Allow(Role("admin"), OpPurchase); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown role, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Merchant ")
	if err != nil {
		t.Fatalf("parse role: %v", err)
	}
	if role != RoleMerchant {
		t.Fatalf("expected merchant, got %s", role)
	}

	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
