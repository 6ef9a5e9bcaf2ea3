package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"clawcraft.app/relay/internal/http/handler/webhook"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/queue"
)

const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type fakeDispatcher struct {
	commands []model.Command
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, cmd model.Command) (queue.Job, error) {
	if f.err != nil {
		return queue.Job{}, f.err
	}
	f.commands = append(f.commands, cmd)
	return queue.Job{ID: int64(len(f.commands)), Command: cmd}, nil
}

func slashForm(text string) url.Values {
	return url.Values{
		"token":        {"ignored"},
		"team_id":      {"T1"},
		"channel_id":   {"C1"},
		"user_id":      {"U1"},
		"command":      {"/clawcraft"},
		"text":         {text},
		"response_url": {"https://hooks.slack.test/commands/T1/1/abc"},
	}
}

func sign(secret string, ts int64, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + strconv.FormatInt(ts, 10) + ":" + body))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(body string, ts int64, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Slack-Signature", sign(secret, ts, body))
	return req
}

var _ = Describe("SlackCommandHandler", func() {
	var (
		router     *gin.Engine
		dispatcher *fakeDispatcher
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		dispatcher = &fakeDispatcher{}
		h := webhook.NewSlackCommandHandler(signingSecret, dispatcher)
		router.POST("/slack/commands", h.HandleCommand)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("acknowledges a valid command and dispatches it", func() {
		body := slashForm("proj-123 please generate script").Encode()
		w := serve(signedRequest(body, time.Now().Unix(), signingSecret))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("Working on PROJ-123... I'll reply in this thread with CSV/JSON."))

		Expect(dispatcher.commands).To(HaveLen(1))
		cmd := dispatcher.commands[0]
		Expect(cmd.IssueKey).To(Equal("PROJ-123"))
		Expect(cmd.ScriptRequested).To(BeTrue())
		Expect(cmd.TeamID).To(Equal("T1"))
		Expect(cmd.ChannelID).To(Equal("C1"))
		Expect(cmd.UserID).To(Equal("U1"))
		Expect(cmd.ResponseURL).To(Equal("https://hooks.slack.test/commands/T1/1/abc"))
		Expect(cmd.CorrelationID).NotTo(BeEmpty())
	})

	It("does not request a script unless asked", func() {
		body := slashForm("PROJ-7").Encode()
		w := serve(signedRequest(body, time.Now().Unix(), signingSecret))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(dispatcher.commands).To(HaveLen(1))
		Expect(dispatcher.commands[0].ScriptRequested).To(BeFalse())
	})

	It("mints a distinct correlation id per command", func() {
		for range 2 {
			body := slashForm("PROJ-1").Encode()
			serve(signedRequest(body, time.Now().Unix(), signingSecret))
		}
		Expect(dispatcher.commands).To(HaveLen(2))
		Expect(dispatcher.commands[0].CorrelationID).NotTo(Equal(dispatcher.commands[1].CorrelationID))
	})

	DescribeTable("rejects unauthentic requests",
		func(build func() *http.Request) {
			w := serve(build())
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Body.String()).To(Equal("Invalid Slack signature."))
			Expect(dispatcher.commands).To(BeEmpty())
		},
		Entry("wrong secret", func() *http.Request {
			return signedRequest(slashForm("PROJ-1").Encode(), time.Now().Unix(), "another-secret")
		}),
		Entry("stale timestamp", func() *http.Request {
			return signedRequest(slashForm("PROJ-1").Encode(), time.Now().Add(-6*time.Minute).Unix(), signingSecret)
		}),
		Entry("tampered body", func() *http.Request {
			req := signedRequest(slashForm("PROJ-1").Encode(), time.Now().Unix(), signingSecret)
			req.Body = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(slashForm("PROJ-2").Encode())).Body
			return req
		}),
		Entry("missing headers", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(slashForm("PROJ-1").Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}),
	)

	DescribeTable("rejects incomplete payloads",
		func(mutate func(url.Values)) {
			form := slashForm("PROJ-1")
			mutate(form)
			w := serve(signedRequest(form.Encode(), time.Now().Unix(), signingSecret))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(Equal("Invalid slash command payload."))
			Expect(dispatcher.commands).To(BeEmpty())
		},
		Entry("no channel", func(f url.Values) { f.Del("channel_id") }),
		Entry("no team", func(f url.Values) { f.Del("team_id") }),
		Entry("no user", func(f url.Values) { f.Del("user_id") }),
		Entry("no command", func(f url.Values) { f.Del("command") }),
		Entry("no response url", func(f url.Values) { f.Del("response_url") }),
		Entry("relative response url", func(f url.Values) { f.Set("response_url", "/commands/1") }),
	)

	DescribeTable("answers with usage when the key is invalid",
		func(text string) {
			w := serve(signedRequest(slashForm(text).Encode(), time.Now().Unix(), signingSecret))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Usage: /clawcraft PROJ-123 [generate script]"))
			Expect(dispatcher.commands).To(BeEmpty())
		},
		Entry("empty text", ""),
		Entry("no number", "PROJ"),
		Entry("leading digit", "1PROJ-2"),
		Entry("phrase first", "generate script PROJ-1"),
		Entry("word instead of key", "abc generate script"),
	)

	It("replies with a retry message when dispatch fails", func() {
		dispatcher.err = errors.New("redis unavailable")
		w := serve(signedRequest(slashForm("PROJ-9").Encode(), time.Now().Unix(), signingSecret))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(HavePrefix("Failed to process PROJ-9. Please try again. (correlation: "))
		Expect(w.Body.String()).NotTo(ContainSubstring("redis"))
	})
})
