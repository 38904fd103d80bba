package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "123456:TEST-TOKEN"

type apiCall struct {
	method  string
	payload map[string]interface{}
}

// botAPIFixture is a scripted stand-in for api.telegram.org.
type botAPIFixture struct {
	mu       sync.Mutex
	calls    []apiCall
	results  map[string]interface{}
	failWith map[string]string
	server   *httptest.Server
}

func newBotAPI(t *testing.T) (*botAPIFixture, *Client) {
	t.Helper()
	f := &botAPIFixture{
		results:  make(map[string]interface{}),
		failWith: make(map[string]string),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
		payload := map[string]interface{}{}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&payload)
		}

		f.mu.Lock()
		f.calls = append(f.calls, apiCall{method: method, payload: payload})
		desc, failed := f.failWith[method]
		result, ok := f.results[method]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if failed {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":          false,
				"description": desc,
				"error_code":  400,
			})
			return
		}
		if !ok {
			result = true
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
	}))
	t.Cleanup(f.server.Close)
	return f, NewClient(testToken).WithBaseURL(f.server.URL)
}

func (f *botAPIFixture) lastCall(t *testing.T, method string) apiCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}
	t.Fatalf("no %s call recorded", method)
	return apiCall{}
}

func TestSendMessage(t *testing.T) {
	api, client := newBotAPI(t)
	api.results["sendMessage"] = Message{MessageID: 10, Chat: Chat{ID: 42}}

	if err := client.SendMessage(context.Background(), 42, "hello *world*"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	call := api.lastCall(t, "sendMessage")
	if got := call.payload["chat_id"].(float64); got != 42 {
		t.Errorf("chat_id = %v, want 42", got)
	}
	if call.payload["text"] != "hello *world*" {
		t.Errorf("text = %v", call.payload["text"])
	}
	if call.payload["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %v, want Markdown", call.payload["parse_mode"])
	}
	if _, present := call.payload["reply_markup"]; present {
		t.Error("plain SendMessage should not attach a keyboard")
	}
}

func TestSendMessageMarkup(t *testing.T) {
	api, client := newBotAPI(t)
	api.results["sendMessage"] = Message{MessageID: 77, Chat: Chat{ID: 42}}

	markup := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
		{Text: "Approve ✅", CallbackData: "approve_X"},
		{Text: "Decline ❌", CallbackData: "decline_X"},
	}}}
	sent, err := client.SendMessageMarkup(context.Background(), 42, "review", markup)
	if err != nil {
		t.Fatalf("SendMessageMarkup: %v", err)
	}
	if sent.MessageID != 77 {
		t.Errorf("sent message id = %d, want 77", sent.MessageID)
	}

	call := api.lastCall(t, "sendMessage")
	raw, err := json.Marshal(call.payload["reply_markup"])
	if err != nil {
		t.Fatalf("re-encode markup: %v", err)
	}
	var got InlineKeyboardMarkup
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode markup: %v", err)
	}
	if len(got.InlineKeyboard) != 1 || len(got.InlineKeyboard[0]) != 2 {
		t.Fatalf("keyboard shape = %v", got.InlineKeyboard)
	}
	if got.InlineKeyboard[0][0].CallbackData != "approve_X" {
		t.Errorf("callback data = %q", got.InlineKeyboard[0][0].CallbackData)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	api, client := newBotAPI(t)
	api.failWith["sendMessage"] = "Bad Request: chat not found"

	err := client.SendMessage(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error %q should carry the API description", err)
	}
}

func TestGetMe(t *testing.T) {
	api, client := newBotAPI(t)
	api.results["getMe"] = User{ID: 99, IsBot: true, Username: "solmeet_bot", FirstName: "SolMeet"}

	me, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if me.Username != "solmeet_bot" || !me.IsBot {
		t.Errorf("me = %+v", me)
	}
}

func TestGetUpdates(t *testing.T) {
	api, client := newBotAPI(t)
	api.results["getUpdates"] = []Update{
		{UpdateID: 100, Message: &Message{MessageID: 1, Chat: Chat{ID: 5}, Text: "/start"}},
		{UpdateID: 101, CallbackQuery: &CallbackQuery{ID: "cb1", Data: "approve_X"}},
	}

	updates, err := client.GetUpdates(context.Background(), 100, 25*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].Message.Text != "/start" {
		t.Errorf("first update text = %q", updates[0].Message.Text)
	}
	if updates[1].CallbackQuery.Data != "approve_X" {
		t.Errorf("second update callback = %q", updates[1].CallbackQuery.Data)
	}

	call := api.lastCall(t, "getUpdates")
	if got := call.payload["offset"].(float64); got != 100 {
		t.Errorf("offset = %v, want 100", got)
	}
	if got := call.payload["timeout"].(float64); got != 25 {
		t.Errorf("timeout = %v, want 25", got)
	}
}

func TestEditMessageText(t *testing.T) {
	api, client := newBotAPI(t)
	if err := client.EditMessageText(context.Background(), 42, 77, "updated"); err != nil {
		t.Fatalf("EditMessageText: %v", err)
	}
	call := api.lastCall(t, "editMessageText")
	if got := call.payload["message_id"].(float64); got != 77 {
		t.Errorf("message_id = %v, want 77", got)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	api, client := newBotAPI(t)
	if err := client.AnswerCallbackQuery(context.Background(), "cb1", "Approved!"); err != nil {
		t.Fatalf("AnswerCallbackQuery: %v", err)
	}
	call := api.lastCall(t, "answerCallbackQuery")
	if call.payload["callback_query_id"] != "cb1" {
		t.Errorf("callback_query_id = %v", call.payload["callback_query_id"])
	}
	if call.payload["text"] != "Approved!" {
		t.Errorf("text = %v", call.payload["text"])
	}
}

func TestSetMyCommands(t *testing.T) {
	api, client := newBotAPI(t)
	commands := []BotCommand{
		{Command: "start", Description: "Get started"},
		{Command: "join", Description: "Join an event"},
	}
	if err := client.SetMyCommands(context.Background(), commands); err != nil {
		t.Fatalf("SetMyCommands: %v", err)
	}
	call := api.lastCall(t, "setMyCommands")
	list, ok := call.payload["commands"].([]interface{})
	if !ok || len(list) != 2 {
		t.Fatalf("commands payload = %v", call.payload["commands"])
	}
}
