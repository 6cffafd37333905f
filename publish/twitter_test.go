package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTwitter_Publish(t *testing.T) {
	var gotAuth, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body.Text
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1460323737035677698","text":"..."}}`))
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		configured string
		credential string
		imageURL   string
		wantAuth   string
		wantText   string
	}{
		{"configured token", "app-token", "", "", "Bearer app-token", "hello"},
		{"session credential wins", "app-token", "user-token", "", "Bearer user-token", "hello"},
		{"image appended", "app-token", "", "https://img/1.png", "Bearer app-token", "hello\nhttps://img/1.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTwitter(tt.configured, WithTwitterAPI(srv.URL))
			res, err := tw.Publish(context.Background(), tt.credential, "hello", tt.imageURL)
			if err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if !res.Success || res.PostURL != "https://twitter.com/i/web/status/1460323737035677698" {
				t.Errorf("result = %+v", res)
			}
			if gotAuth != tt.wantAuth || gotText != tt.wantText {
				t.Errorf("auth %q text %q", gotAuth, gotText)
			}
		})
	}
}

func TestTwitter_Errors(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		_, err := NewTwitter("").Publish(context.Background(), "", "x", "")
		if !errors.Is(err, ErrNoCredential) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"title":"Forbidden"}`))
		}))
		defer srv.Close()

		res, err := NewTwitter("t", WithTwitterAPI(srv.URL)).Publish(context.Background(), "", "x", "")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden || res.Success {
			t.Errorf("Publish = %+v, %v", res, err)
		}
	})
}
