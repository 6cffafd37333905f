package publish

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	result Result
	err    error
	calls  int
	got    []string
}

func (s *stubPublisher) Publish(_ context.Context, credential, content, imageURL string) (Result, error) {
	s.calls++
	s.got = []string{credential, content, imageURL}
	return s.result, s.err
}

type countingRecorder struct {
	success map[string]int
	failure map[string]int
}

func newRecorder() *countingRecorder {
	return &countingRecorder{success: map[string]int{}, failure: map[string]int{}}
}

func (r *countingRecorder) RecordPublish(platform string, ok bool) {
	if ok {
		r.success[platform]++
		return
	}
	r.failure[platform]++
}

func TestDispatcher_Routes(t *testing.T) {
	tw := &stubPublisher{result: Result{Success: true, PostURL: "https://twitter.com/i/web/status/1"}}
	li := &stubPublisher{}
	rec := newRecorder()
	d := NewDispatcher(WithPublisher(PlatformTwitter, tw), WithPublisher("LinkedIn", li), WithRecorder(rec))

	res, err := d.Publish(context.Background(), "Twitter", "tok", "hello", "https://img")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Success || res.PostURL == "" {
		t.Errorf("result = %+v", res)
	}
	if tw.calls != 1 || li.calls != 0 {
		t.Errorf("calls twitter=%d linkedin=%d", tw.calls, li.calls)
	}
	if tw.got[0] != "tok" || tw.got[1] != "hello" || tw.got[2] != "https://img" {
		t.Errorf("publisher got %v", tw.got)
	}
	if rec.success["twitter"] != 1 {
		t.Errorf("recorded %v", rec.success)
	}

	if got := d.Platforms(); len(got) != 2 || got[0] != "linkedin" || got[1] != "twitter" {
		t.Errorf("Platforms = %v", got)
	}
}

func TestDispatcher_Failures(t *testing.T) {
	t.Run("unknown platform", func(t *testing.T) {
		rec := newRecorder()
		_, err := NewDispatcher(WithRecorder(rec)).Publish(context.Background(), "myspace", "", "x", "")
		if !errors.Is(err, ErrUnknownPlatform) {
			t.Errorf("error = %v", err)
		}
		if rec.failure["myspace"] != 1 {
			t.Errorf("failure not recorded: %v", rec.failure)
		}
	})

	t.Run("publisher error forces failure", func(t *testing.T) {
		rec := newRecorder()
		li := &stubPublisher{result: Result{Success: true}, err: ErrNoCredential}
		res, err := NewDispatcher(WithPublisher(PlatformLinkedIn, li), WithRecorder(rec)).
			Publish(context.Background(), PlatformLinkedIn, "", "x", "")
		if !errors.Is(err, ErrNoCredential) {
			t.Errorf("error = %v", err)
		}
		if res.Success {
			t.Error("Success reported alongside an error")
		}
		if rec.failure["linkedin"] != 1 {
			t.Errorf("failure not recorded: %v", rec.failure)
		}
	})
}
