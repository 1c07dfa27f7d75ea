package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/chat"
)

type stubService struct {
	messages []chat.Message
	actions  []string
	chatIDs  []string
	replies  []chat.Reply
	err      error
}

func (s *stubService) HandleMessage(ctx context.Context, msg chat.Message) ([]chat.Reply, error) {
	s.messages = append(s.messages, msg)
	s.chatIDs = append(s.chatIDs, errors.ChatIDFromContext(ctx))
	return s.replies, s.err
}

func (s *stubService) HandleAction(ctx context.Context, chatID, data string) ([]chat.Reply, error) {
	s.actions = append(s.actions, data)
	s.chatIDs = append(s.chatIDs, errors.ChatIDFromContext(ctx))
	return s.replies, s.err
}

var _ = Describe("Handler", func() {
	var (
		svc     *stubService
		handler *chat.Handler
	)

	BeforeEach(func() {
		svc = &stubService{}
		handler = chat.NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	call := func(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	Describe("PostMessage", func() {
		It("relays the message and returns the replies", func() {
			svc.replies = []chat.Reply{{Text: "✅ Logged"}}
			rec := call(handler.PostMessage, `{"chat_id":" 42 ","message_id":"9","text":"$5 coffee"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.messages).To(Equal([]chat.Message{{ChatID: "42", MessageID: "9", Text: "$5 coffee"}}))
			Expect(svc.chatIDs).To(Equal([]string{"42"}))

			var resp chat.RepliesResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Replies).To(HaveLen(1))
			Expect(resp.Replies[0].Text).To(Equal("✅ Logged"))
		})

		It("always returns a replies array", func() {
			rec := call(handler.PostMessage, `{"chat_id":"42","text":"hello"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(strings.TrimSpace(rec.Body.String())).To(Equal(`{"replies":[]}`))
		})

		It("rejects a missing chat id", func() {
			rec := call(handler.PostMessage, `{"chat_id":"  ","text":"hello"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(svc.messages).To(BeEmpty())
		})

		It("rejects unknown fields", func() {
			rec := call(handler.PostMessage, `{"chat_id":"42","text":"hello","user":"x"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal(string(errors.ErrCodeValidationFailed)))
		})

		It("renders service errors with their status", func() {
			svc.err = errors.ErrBackendUnavailable
			rec := call(handler.PostMessage, `{"chat_id":"42","text":"hello"}`)
			Expect(rec.Code).To(Equal(errors.ErrBackendUnavailable.StatusCode))
		})
	})

	Describe("PostAction", func() {
		It("relays the button data", func() {
			rec := call(handler.PostAction, `{"chat_id":"42","data":"confirm|abc"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.actions).To(Equal([]string{"confirm|abc"}))
			Expect(svc.chatIDs).To(Equal([]string{"42"}))
		})

		It("requires data", func() {
			rec := call(handler.PostAction, `{"chat_id":"42"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal(string(errors.ErrCodeInvalidAction)))
			Expect(svc.actions).To(BeEmpty())
		})

		It("requires a chat id", func() {
			rec := call(handler.PostAction, `{"data":"confirm|abc"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
