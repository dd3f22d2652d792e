package delivery

import (
	"context"
	"testing"
	"time"

	"gotify2telegram/internal/transport/telegram"
	logx "gotify2telegram/pkg/logx"
)

func newTestExecutor(caller Caller, state *State, sleeps *sleepRecorder) *Executor {
	return NewExecutor(caller, state, ExecutorConfig{}, sleeps.Sleep, logx.Nop())
}

func TestExecuteBacksOffThenGivesUp(t *testing.T) {
	caller := &fakeCaller{respond: alwaysFail(errNet)}
	state := NewState(true)
	sleeps := &sleepRecorder{}
	exec := newTestExecutor(caller, state, sleeps)

	res := exec.Execute(context.Background(), SendText, Payload{Fields: map[string]string{"text": "x"}})
	if res.Outcome != NetworkError {
		t.Fatalf("outcome = %v, want network_error", res.Outcome)
	}
	if got := len(caller.sent()); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	waits := sleeps.recorded()
	if len(waits) != 2 {
		t.Fatalf("waits = %v, want 2 entries", waits)
	}
	for i := 1; i < len(waits); i++ {
		if waits[i] < waits[i-1] {
			t.Fatalf("waits decreased: %v", waits)
		}
	}
	if waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Fatalf("waits = %v, want [1s 2s]", waits)
	}
	if state.Connected() {
		t.Fatal("state should be disconnected after exhausted attempts")
	}
}

func TestExecuteRejectionIsNotRetried(t *testing.T) {
	caller := &fakeCaller{respond: alwaysFail(rejection())}
	state := NewState(false)
	sleeps := &sleepRecorder{}
	exec := newTestExecutor(caller, state, sleeps)

	res := exec.Execute(context.Background(), SendText, Payload{Fields: map[string]string{"text": ""}})
	if res.Outcome != APIError {
		t.Fatalf("outcome = %v, want api_error", res.Outcome)
	}
	if got := len(caller.sent()); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if len(sleeps.recorded()) != 0 {
		t.Fatalf("unexpected backoff: %v", sleeps.recorded())
	}
	if !state.Connected() {
		t.Fatal("a rejection proves the api is reachable")
	}
}

func TestExecuteSucceedsOnRetry(t *testing.T) {
	caller := &fakeCaller{respond: func(n int, _ sentCall) error {
		if n == 0 {
			return errNet
		}
		return nil
	}}
	state := NewState(false)
	exec := newTestExecutor(caller, state, &sleepRecorder{})

	res := exec.Execute(context.Background(), SendDocument, Payload{
		Fields: map[string]string{"caption": "c"},
		File:   &telegram.InputFile{Field: "document", Name: "message.txt", Data: []byte("body")},
	})
	if res.Outcome != OK || res.Attempts != 2 {
		t.Fatalf("result = %+v, want ok after 2 attempts", res)
	}
	sent := caller.sent()
	if sent[0].method != telegram.MethodSendDocument {
		t.Fatalf("method = %s", sent[0].method)
	}
	if !state.Connected() {
		t.Fatal("success should mark connected")
	}
}

func TestExecuteTemporaryAPIErrorIsRetried(t *testing.T) {
	flood := &telegram.APIError{Method: "sendMessage", Code: 429, Description: "Too Many Requests", RetryAfter: 5}
	caller := &fakeCaller{respond: alwaysFail(flood)}
	sleeps := &sleepRecorder{}
	exec := newTestExecutor(caller, NewState(true), sleeps)

	res := exec.Execute(context.Background(), SendText, Payload{Fields: map[string]string{"text": "x"}})
	if res.Outcome != NetworkError {
		t.Fatalf("outcome = %v, want network_error", res.Outcome)
	}
	waits := sleeps.recorded()
	if len(waits) != 2 || waits[0] != 5*time.Second || waits[1] != 5*time.Second {
		t.Fatalf("waits = %v, want retry_after honored and non-decreasing", waits)
	}
}

func TestExecuteCancelledLeavesState(t *testing.T) {
	caller := &fakeCaller{}
	state := NewState(true)
	exec := newTestExecutor(caller, state, &sleepRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := exec.Execute(ctx, SendText, Payload{Fields: map[string]string{"text": "x"}})
	if res.Outcome != NetworkError {
		t.Fatalf("outcome = %v, want network_error", res.Outcome)
	}
	if len(caller.sent()) != 0 {
		t.Fatal("no call expected on a cancelled context")
	}
	if !state.Connected() {
		t.Fatal("cancellation must not flip connectivity")
	}
}
