package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/csheth/legalease/internal/document"
	"github.com/csheth/legalease/internal/llm"
)

type fakeReply struct {
	text string
	err  error
}

type fakeGateway struct {
	replies []fakeReply
	calls   []llm.Request
}

func (f *fakeGateway) Send(_ context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	if len(f.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return next.text, next.err
}

type deniedSource struct{}

func (deniedSource) Open() (io.ReadCloser, error) { return nil, errors.New("permission revoked") }

var testLanguages = []string{"English", "Hindi (हिन्दी)", "Bengali (বাংলা)", "Marathi (मराठी)", "Tamil (தமிழ்)"}

func newTestOrchestrator(gw llm.Sender) *Orchestrator {
	return New(gw, Options{Languages: testLanguages})
}

func pdfOfSize(name string, size int) document.Handle {
	data := make([]byte, size)
	copy(data, "%PDF-1.4\n")
	return document.FromBytes(name, "application/pdf", data)
}

func simplified(t *testing.T, o *Orchestrator, gw *fakeGateway, text string) {
	t.Helper()
	o.Dispatch(Upload{Document: pdfOfSize("lease.pdf", 1024)})
	gw.replies = append(gw.replies, fakeReply{text: text})
	job := o.Dispatch(Simplify{})
	if job == nil {
		t.Fatal("expected simplify job")
	}
	o.Settle(job.Run(context.Background()))
	if snap := o.Snapshot(); snap.Phase != PhaseReady {
		t.Fatalf("phase = %s, want ready", snap.Phase)
	}
}

func TestNewStartsEmptyWithFirstLanguage(t *testing.T) {
	snap := newTestOrchestrator(&fakeGateway{}).Snapshot()
	if snap.Phase != PhaseEmpty || snap.Document != nil || snap.HasSimplified || snap.Failed() {
		t.Fatalf("unexpected initial snapshot: %#v", snap)
	}
	if snap.Language != "English" {
		t.Fatalf("language = %q, want English", snap.Language)
	}
}

func TestUploadRejectsOversizeDocuments(t *testing.T) {
	cases := []struct {
		name string
		size int
	}{
		{name: "one byte over", size: int(DefaultMaxDocumentBytes) + 1},
		{name: "five MiB", size: 5 * 1024 * 1024},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrchestrator(&fakeGateway{})
			o.Dispatch(Upload{Document: pdfOfSize("small.pdf", 10)})
			o.Dispatch(Upload{Document: pdfOfSize("huge.pdf", tc.size)})

			snap := o.Snapshot()
			if snap.Document == nil || snap.Document.Name != "small.pdf" {
				t.Fatalf("selected document changed: %#v", snap.Document)
			}
			if snap.LastError != "File is too large. Max 4MB." {
				t.Fatalf("lastError = %q", snap.LastError)
			}
		})
	}
}

func TestUploadAcceptsDocumentAtLimit(t *testing.T) {
	o := newTestOrchestrator(&fakeGateway{})
	o.Dispatch(Upload{Document: pdfOfSize("edge.pdf", int(DefaultMaxDocumentBytes))})
	snap := o.Snapshot()
	if snap.Phase != PhaseDocumentSelected || snap.Failed() {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestUploadClearsPreviousResults(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "text")
	gw.replies = append(gw.replies, fakeReply{text: "answer"})
	o.Settle(o.Dispatch(Ask{Question: "q"}).Run(context.Background()))

	o.Dispatch(Upload{Document: pdfOfSize("next.pdf", 10)})
	snap := o.Snapshot()
	if snap.HasSimplified || len(snap.Conversation) != 0 || snap.Phase != PhaseDocumentSelected {
		t.Fatalf("upload kept stale results: %#v", snap)
	}
}

func TestSimplifyRejectedWithoutDocumentOrWhileRunning(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	before := o.Snapshot()
	if job := o.Dispatch(Simplify{}); job != nil {
		t.Fatal("simplify without a document must not dispatch")
	}
	if after := o.Snapshot(); after.Phase != before.Phase || after.LastError != before.LastError {
		t.Fatalf("state changed on rejected simplify: %#v", after)
	}

	o.Dispatch(Upload{Document: pdfOfSize("a.pdf", 10)})
	if job := o.Dispatch(Simplify{}); job == nil {
		t.Fatal("expected first simplify to dispatch")
	}
	if job := o.Dispatch(Simplify{}); job != nil {
		t.Fatal("second simplify must be rejected while the first is in flight")
	}
	if len(gw.calls) != 0 {
		t.Fatalf("jobs were not run yet, got %d calls", len(gw.calls))
	}
}

func TestSimplifySuccessScenario(t *testing.T) {
	const reply = "Disclaimer: ...\n### Summary\n* point one\n"
	gw := &fakeGateway{replies: []fakeReply{{text: reply}}}
	o := newTestOrchestrator(gw)
	o.Dispatch(Upload{Document: pdfOfSize("contract.pdf", 2*1024*1024)})

	job := o.Dispatch(Simplify{})
	if job == nil {
		t.Fatal("expected simplify job")
	}
	if snap := o.Snapshot(); snap.Phase != PhaseSimplifying || !snap.Simplifying {
		t.Fatalf("phase = %s, want simplifying", snap.Phase)
	}
	o.Settle(job.Run(context.Background()))

	snap := o.Snapshot()
	if snap.Simplified != reply || !snap.HasSimplified {
		t.Fatalf("simplified = %q", snap.Simplified)
	}
	if snap.Phase != PhaseReady || len(snap.Conversation) != 0 || snap.Failed() {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(gw.calls))
	}
	inline := gw.calls[0].Contents[0].Parts[1].InlineData
	if inline == nil || inline.MimeType != "application/pdf" || inline.Data == "" {
		t.Fatalf("request missing document payload: %#v", inline)
	}
	if o.Pending(JobSimplify) {
		t.Fatal("slot should be released after settlement")
	}
}

func TestSimplifyFailureSetsLastError(t *testing.T) {
	exhausted := &llm.ExhaustedError{Attempts: 3, Err: &llm.StatusError{Code: 503, Status: "503 Service Unavailable"}}
	gw := &fakeGateway{replies: []fakeReply{{err: exhausted}}}
	o := newTestOrchestrator(gw)
	o.Dispatch(Upload{Document: pdfOfSize("a.pdf", 10)})
	o.Settle(o.Dispatch(Simplify{}).Run(context.Background()))

	snap := o.Snapshot()
	if snap.Phase != PhaseDocumentSelected {
		t.Fatalf("phase = %s, want document selected", snap.Phase)
	}
	if !strings.Contains(snap.LastError, "after 3 attempts") || !strings.Contains(snap.LastError, "503") {
		t.Fatalf("lastError = %q", snap.LastError)
	}

	// A retry by the user clears the error again.
	gw.replies = append(gw.replies, fakeReply{text: "ok"})
	job := o.Dispatch(Simplify{})
	if o.Snapshot().Failed() {
		t.Fatal("simplify dispatch should clear lastError")
	}
	o.Settle(job.Run(context.Background()))
	if o.Snapshot().Phase != PhaseReady {
		t.Fatal("expected ready after retry")
	}
}

func TestSimplifyReadFailureIsNotSent(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	o.Dispatch(Upload{Document: document.Handle{Name: "gone.pdf", MediaType: "application/pdf", Size: 10, Source: deniedSource{}}})
	o.Settle(o.Dispatch(Simplify{}).Run(context.Background()))

	snap := o.Snapshot()
	if !strings.Contains(snap.LastError, `Could not read "gone.pdf"`) {
		t.Fatalf("lastError = %q", snap.LastError)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("gateway must not be called on read failure, got %d calls", len(gw.calls))
	}
}

func TestSimplifyWithoutGatewayReportsConfiguration(t *testing.T) {
	cases := []struct {
		name string
		env  string
		want string
	}{
		{name: "default variable", env: "", want: "set GEMINI_API_KEY"},
		{name: "configured variable", env: "LEGALEASE_KEY", want: "set LEGALEASE_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := New(nil, Options{Languages: testLanguages, APIKeyEnv: tc.env})
			o.Dispatch(Upload{Document: pdfOfSize("a.pdf", 10)})
			if job := o.Dispatch(Simplify{}); job != nil {
				t.Fatal("expected no job without gateway")
			}
			snap := o.Snapshot()
			if !strings.Contains(snap.LastError, tc.want) || snap.Phase != PhaseDocumentSelected {
				t.Fatalf("unexpected snapshot: %#v", snap)
			}
		})
	}
}

func TestAskBlankQuestionIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "text")
	calls := len(gw.calls)

	for _, q := range []string{"", "   ", "\t\n"} {
		if job := o.Dispatch(Ask{Question: q}); job != nil {
			t.Fatalf("blank question %q dispatched a job", q)
		}
	}
	if snap := o.Snapshot(); len(snap.Conversation) != 0 || snap.Phase != PhaseReady {
		t.Fatalf("blank question changed state: %#v", snap)
	}
	if len(gw.calls) != calls {
		t.Fatal("blank question reached the gateway")
	}
}

func TestAskRequiresSimplifiedContent(t *testing.T) {
	o := newTestOrchestrator(&fakeGateway{})
	o.Dispatch(Upload{Document: pdfOfSize("a.pdf", 10)})
	if job := o.Dispatch(Ask{Question: "anything?"}); job != nil {
		t.Fatal("ask before simplify must be rejected")
	}
	if len(o.Snapshot().Conversation) != 0 {
		t.Fatal("conversation must stay empty without simplified content")
	}
}

func TestAskSuccessScenario(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "### Penalties\n* 2% per month")

	job := o.Dispatch(Ask{Question: "  What is the penalty clause?  "})
	if job == nil {
		t.Fatal("expected ask job")
	}
	snap := o.Snapshot()
	if snap.Phase != PhaseAnswering || len(snap.Conversation) != 1 {
		t.Fatalf("unexpected snapshot after dispatch: %#v", snap)
	}
	if turn := snap.Conversation[0]; turn.Speaker != SpeakerUser || turn.Text != "What is the penalty clause?" {
		t.Fatalf("unexpected user turn: %#v", turn)
	}
	if second := o.Dispatch(Ask{Question: "another"}); second != nil {
		t.Fatal("second question must be rejected while answering")
	}

	gw.replies = append(gw.replies, fakeReply{text: "Late payment costs 2% per month."})
	o.Settle(job.Run(context.Background()))

	snap = o.Snapshot()
	if snap.Phase != PhaseReady || len(snap.Conversation) != 2 {
		t.Fatalf("unexpected snapshot after settlement: %#v", snap)
	}
	if turn := snap.Conversation[1]; turn.Speaker != SpeakerAssistant || turn.Text != "Late payment costs 2% per month." || turn.Failed {
		t.Fatalf("unexpected assistant turn: %#v", turn)
	}
	prompt := gw.calls[len(gw.calls)-1].Contents[0].Parts[0].Text
	if !strings.Contains(prompt, `QUESTION: "What is the penalty clause?"`) || !strings.Contains(prompt, "2% per month") {
		t.Fatalf("unexpected chat prompt: %s", prompt)
	}
}

func TestAskFailureAppendsFailedTurn(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "text")

	job := o.Dispatch(Ask{Question: "q?"})
	gw.replies = append(gw.replies, fakeReply{err: &llm.ExhaustedError{Attempts: 3, Err: llm.ErrMalformedResponse}})
	o.Settle(job.Run(context.Background()))

	snap := o.Snapshot()
	if snap.Phase != PhaseReady || len(snap.Conversation) != 2 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	turn := snap.Conversation[1]
	if !turn.Failed || turn.Speaker != SpeakerAssistant || !strings.HasPrefix(turn.Text, "Error: ") {
		t.Fatalf("unexpected failure turn: %#v", turn)
	}
	if snap.Failed() {
		t.Fatal("chat failures are reported in the conversation, not lastError")
	}
}

func TestClearWhileAnsweringDiscardsLateAnswer(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "text")

	job := o.Dispatch(Ask{Question: "q?"})
	o.Dispatch(Clear{})
	gw.replies = append(gw.replies, fakeReply{text: "late answer"})
	o.Settle(job.Run(context.Background()))

	snap := o.Snapshot()
	if snap.Phase != PhaseEmpty || len(snap.Conversation) != 0 || snap.HasSimplified {
		t.Fatalf("late answer resurrected state: %#v", snap)
	}
	if o.Pending(JobAsk) {
		t.Fatal("settlement must release the ask slot")
	}
}

func TestClearKeepsSlotUntilSettlement(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	o.Dispatch(Upload{Document: pdfOfSize("first.pdf", 10)})
	stale := o.Dispatch(Simplify{})

	o.Dispatch(Clear{})
	o.Dispatch(Upload{Document: pdfOfSize("second.pdf", 10)})
	if job := o.Dispatch(Simplify{}); job != nil {
		t.Fatal("simplify must wait for the outstanding request")
	}
	if !o.Snapshot().Failed() {
		t.Fatal("expected a message explaining the rejection")
	}

	gw.replies = append(gw.replies, fakeReply{text: "first result"}, fakeReply{text: "second result"})
	o.Settle(stale.Run(context.Background()))
	if snap := o.Snapshot(); snap.HasSimplified || snap.Document.Name != "second.pdf" {
		t.Fatalf("stale result applied: %#v", snap)
	}

	job := o.Dispatch(Simplify{})
	if job == nil {
		t.Fatal("expected simplify after the slot was released")
	}
	o.Settle(job.Run(context.Background()))
	if snap := o.Snapshot(); snap.Simplified != "second result" {
		t.Fatalf("simplified = %q", snap.Simplified)
	}
}

func TestUploadDuringSimplifyDiscardsOldResult(t *testing.T) {
	gw := &fakeGateway{replies: []fakeReply{{text: "old"}}}
	o := newTestOrchestrator(gw)
	o.Dispatch(Upload{Document: pdfOfSize("old.pdf", 10)})
	job := o.Dispatch(Simplify{})
	o.Dispatch(Upload{Document: pdfOfSize("new.pdf", 10)})
	o.Settle(job.Run(context.Background()))

	snap := o.Snapshot()
	if snap.HasSimplified || snap.Phase != PhaseDocumentSelected || snap.Document.Name != "new.pdf" {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestSettleIgnoresUnknownJobs(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "text")
	o.Settle(Settlement{JobID: "bogus", Kind: JobSimplify, Text: "injected"})
	o.Settle(Settlement{JobID: "bogus", Kind: JobAsk, Text: "injected"})
	snap := o.Snapshot()
	if snap.Simplified != "text" || len(snap.Conversation) != 0 {
		t.Fatalf("unknown settlement applied: %#v", snap)
	}
}

func TestDismissErrorOnlyClearsError(t *testing.T) {
	o := newTestOrchestrator(&fakeGateway{})
	o.Dispatch(Upload{Document: pdfOfSize("a.pdf", 10)})
	o.Dispatch(Upload{Document: pdfOfSize("b.pdf", int(DefaultMaxDocumentBytes)+1)})
	before := o.Snapshot()
	o.Dispatch(DismissError{})
	after := o.Snapshot()
	if after.Failed() {
		t.Fatal("expected error to be dismissed")
	}
	if after.Phase != before.Phase || after.Document.Name != before.Document.Name || after.Language != before.Language {
		t.Fatalf("dismiss changed other fields: %#v", after)
	}
}

func TestSetLanguageResolvesLabels(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "Hindi (हिन्दी)", want: "Hindi (हिन्दी)", ok: true},
		{input: "tamil (தமிழ்)", want: "Tamil (தமிழ்)", ok: true},
		{input: "hindi", want: "Hindi (हिन्दी)", ok: true},
		{input: "Benglai", want: "Bengali (বাংলা)", ok: true},
		{input: "Klingon", ok: false},
		{input: "  ", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			o := newTestOrchestrator(&fakeGateway{})
			o.Dispatch(SetLanguage{Language: tc.input})
			snap := o.Snapshot()
			if tc.ok {
				if snap.Language != tc.want || snap.Failed() {
					t.Fatalf("language = %q (err %q), want %q", snap.Language, snap.LastError, tc.want)
				}
				return
			}
			if snap.Language != "English" || !snap.Failed() {
				t.Fatalf("expected rejection, got language %q err %q", snap.Language, snap.LastError)
			}
		})
	}
}

func TestSetLanguageAppliesToFuturePromptsOnly(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw)
	simplified(t, o, gw, "text")

	job := o.Dispatch(Ask{Question: "first?"})
	o.Dispatch(SetLanguage{Language: "Marathi"})
	gw.replies = append(gw.replies, fakeReply{text: "one"}, fakeReply{text: "two"})
	o.Settle(job.Run(context.Background()))
	o.Settle(o.Dispatch(Ask{Question: "second?"}).Run(context.Background()))

	first := gw.calls[1].SystemInstruction.Parts[0].Text
	second := gw.calls[2].SystemInstruction.Parts[0].Text
	if !strings.Contains(first, "English") || strings.Contains(first, "Marathi") {
		t.Fatalf("in-flight request changed language: %s", first)
	}
	if !strings.Contains(second, "Marathi (मराठी)") {
		t.Fatalf("new request ignored language: %s", second)
	}
	if turns := o.Snapshot().Conversation; turns[1].Text != "one" {
		t.Fatalf("past turns rewritten: %#v", turns)
	}
}

func TestDescribeErrorFallsBackToMessage(t *testing.T) {
	o := newTestOrchestrator(nil)
	if got := o.describeError(errors.New("plain")); got != "plain" {
		t.Fatalf("describeError() = %q", got)
	}
	if got := o.describeError(context.Canceled); got != "Request cancelled." {
		t.Fatalf("describeError(canceled) = %q", got)
	}
	status := &llm.StatusError{Code: http.StatusBadRequest, Status: "400 Bad Request"}
	if got := o.describeError(&llm.ExhaustedError{Attempts: 3, Err: status}); got != "Request failed after 3 attempts: API error: 400 Bad Request" {
		t.Fatalf("describeError(exhausted) = %q", got)
	}
}
