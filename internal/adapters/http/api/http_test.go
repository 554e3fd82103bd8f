package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/adapters/http/api"
	service "github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := service.New(
		service.WithConsensusTimeout(200 * time.Millisecond),
		service.WithWorkerCount(2),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func gameBody(id string) string {
	kickoff := time.Now().Add(6 * time.Hour).Format(time.RFC3339)
	return fmt.Sprintf(`{
		"game_id": %q,
		"home_team": "Hawks",
		"away_team": "Bears",
		"kickoff": %q,
		"spread": -3.5,
		"total": 44.5,
		"has_market": true,
		"weather": {"dome": true}
	}`, id, kickoff)
}

func outcomeBody() string {
	return `{
		"home_score": 27,
		"away_score": 17,
		"home_quarters": [7, 10, 3, 7],
		"away_quarters": [3, 7, 0, 7],
		"final": true
	}`
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestAPI_GameRoutes(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts := newTestServer(t)

		Convey("When registering a game", func() {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/games", gameBody("api-1"))

			Convey("Then it is created in the scheduled state", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(string(body["state"]), ShouldEqual, `"scheduled"`)
			})
		})

		Convey("When posting malformed JSON", func() {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/games", `{"game_id": `)

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(string(body["code"]), ShouldEqual, `"bad_request"`)
			})
		})

		Convey("When posting an incomplete game context", func() {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/games", `{"game_id": "incomplete"}`)

			Convey("Then the missing context is unprocessable", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
				So(string(body["code"]), ShouldEqual, `"missing_context"`)
			})
		})

		Convey("When registering the same game twice", func() {
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/games", gameBody("api-dup"))
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			resp, body := doJSON(t, http.MethodPost, ts.URL+"/games", gameBody("api-dup"))

			Convey("Then the duplicate conflicts", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(string(body["code"]), ShouldEqual, `"game_exists"`)
			})
		})

		Convey("When fetching an unknown game", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/games/nope", "")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(string(body["code"]), ShouldEqual, `"not_found"`)
			})
		})

		Convey("When using the wrong method on /games", func() {
			resp, _ := doJSON(t, http.MethodGet, ts.URL+"/games", "")

			Convey("Then the route does not exist", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAPI_FullLifecycle(t *testing.T) {
	Convey("Given a registered game", t, func() {
		ts := newTestServer(t)

		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/games", gameBody("flow-1"))
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)

		Convey("When walking the game through its lifecycle", func() {
			resp, records := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/predictions", "")
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(len(records), ShouldEqual, 15)

			var expertID string
			for id := range records {
				expertID = id
				break
			}

			Convey("Then each expert's chain is retrievable", func() {
				req, err := http.Get(ts.URL + "/games/flow-1/predictions/" + expertID)
				So(err, ShouldBeNil)
				defer func() { _ = req.Body.Close() }()
				So(req.StatusCode, ShouldEqual, http.StatusOK)

				var chain []model.PredictionRecord
				So(json.NewDecoder(req.Body).Decode(&chain), ShouldBeNil)
				So(len(chain), ShouldEqual, 1)
				So(chain[0].Version, ShouldEqual, 1)
			})

			Convey("Then a revision extends the chain over HTTP", func() {
				revBody := fmt.Sprintf(`{
					"expert_id": %q,
					"trigger": "injury news",
					"changes": [{"category": "home_score", "value": 31, "confidence": 0.7}]
				}`, expertID)
				resp, revised := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/revisions", revBody)
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(string(revised["version"]), ShouldEqual, "2")

				resp, _ = doJSON(t, http.MethodGet, ts.URL+"/games/flow-1/revisions", "")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})

			Convey("Then consensus and outcome complete the flow", func() {
				resp, cons := doJSON(t, http.MethodGet, ts.URL+"/games/flow-1/consensus", "")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(cons["degraded"]), ShouldEqual, "false")

				resp, settled := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/outcome", outcomeBody())
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(settled["state"]), ShouldEqual, `"archived"`)

				Convey("And a repeated outcome conflicts", func() {
					resp, body := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/outcome", outcomeBody())
					So(resp.StatusCode, ShouldEqual, http.StatusConflict)
					So(string(body["code"]), ShouldEqual, `"duplicate_outcome"`)
				})

				Convey("And revising after settlement conflicts", func() {
					revBody := fmt.Sprintf(`{
						"expert_id": %q,
						"trigger": "late news",
						"changes": [{"category": "home_score", "value": 20}]
					}`, expertID)
					resp, body := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/revisions", revBody)
					So(resp.StatusCode, ShouldEqual, http.StatusConflict)
					So(string(body["code"]), ShouldEqual, `"stale_window"`)
				})
			})

			Convey("Then a non-final outcome is rejected", func() {
				resp, body := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/outcome",
					`{"home_score": 10, "away_score": 7, "final": false}`)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(string(body["code"]), ShouldEqual, `"outcome_not_final"`)
			})
		})

		Convey("When posting a revision without changes", func() {
			revBody := `{"expert_id": "someone", "trigger": "noop", "changes": []}`
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/games/flow-1/revisions", revBody)

			Convey("Then validation rejects it before the domain is reached", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(string(body["code"]), ShouldEqual, `"bad_request"`)
			})
		})
	})
}

func TestAPI_ExpertRoutes(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts := newTestServer(t)

		Convey("When listing experts", func() {
			resp, err := http.Get(ts.URL + "/experts")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			var experts []struct {
				ID          string             `json:"id"`
				Name        string             `json:"name"`
				Personality map[string]float64 `json:"personality"`
			}
			So(json.NewDecoder(resp.Body).Decode(&experts), ShouldBeNil)

			Convey("Then the full roster is exposed with personalities", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(len(experts), ShouldEqual, 15)
				So(experts[0].ID, ShouldNotBeEmpty)
			})

			Convey("Then each profile resolves individually", func() {
				resp, err := http.Get(ts.URL + "/experts/" + experts[0].ID)
				So(err, ShouldBeNil)
				defer func() { _ = resp.Body.Close() }()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When fetching an unknown expert", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/experts/nobody", "")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(string(body["code"]), ShouldEqual, `"not_found"`)
			})
		})
	})
}

func TestAPI_Observability(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts := newTestServer(t)

		Convey("When scraping /healthz", func() {
			resp, err := http.Get(ts.URL + "/healthz")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			Convey("Then the metrics registry is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When reading /stats", func() {
			resp, stats := doJSON(t, http.MethodGet, ts.URL+"/stats", "")

			Convey("Then service statistics come back as JSON", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(stats["started"]), ShouldEqual, "true")
				So(stats, ShouldContainKey, "experts")
			})
		})
	})
}
