package state

import "testing"

func TestDrawTransitions(t *testing.T) {
	next, err := NextState(StateOpen, EvtSettleStart)
	if err != nil || next != StateSettling {
		t.Fatalf("open --settle_start--> got %s, err %v", next, err)
	}
	next, err = NextState(StateSettling, EvtSettleDone)
	if err != nil || next != StateClosed {
		t.Fatalf("settling --settle_done--> got %s, err %v", next, err)
	}
	next, err = NextState(StateSettling, EvtSettleAbort)
	if err != nil || next != StateOpen {
		t.Fatalf("settling --settle_abort--> got %s, err %v", next, err)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	for _, evt := range []string{EvtSettleStart, EvtSettleDone, EvtSettleAbort} {
		if _, err := NextState(StateClosed, evt); err == nil {
			t.Errorf("closed should reject %s", evt)
		}
	}
}

func TestPayTransitions(t *testing.T) {
	cases := []struct {
		cur, evt, want string
		ok             bool
	}{
		{PayStateCreated, EvtGatewayAccepted, PayStatePending, true},
		{PayStateCreated, EvtGatewayPaid, PayStatePaid, true},
		{PayStateCreated, EvtManualCancel, PayStateCancelled, true},
		{PayStatePending, EvtGatewayPaid, PayStatePaid, true},
		{PayStatePending, EvtGatewayRejected, PayStateRejected, true},
		// 人工取消受理中的提现（网关侧确认未出款后）
		{PayStatePending, EvtManualCancel, PayStateCancelled, true},
		{PayStateRejected, EvtReversalApplied, PayStateReversed, true},
		// 已支付的单据允许网关冲正
		{PayStatePaid, EvtReversalApplied, PayStateReversed, true},
		// 终态不接受事件
		{PayStatePaid, EvtGatewayRejected, "", false},
		{PayStateReversed, EvtGatewayPaid, "", false},
		{PayStateCancelled, EvtGatewayAccepted, "", false},
	}
	for _, c := range cases {
		next, err := NextPayState(c.cur, c.evt)
		if c.ok {
			if err != nil || next != c.want {
				t.Errorf("%s --%s--> got (%s, %v), want %s", c.cur, c.evt, next, err, c.want)
			}
		} else if err == nil {
			t.Errorf("%s --%s--> expected error, got %s", c.cur, c.evt, next)
		}
	}
}
