package ai

import "context"

// Advisor produces the three pedagogical messages the platform relies on.
// Implementations never return errors: any failure of the backing
// generative-text service resolves to a fixed fallback string so the learner
// flow is never blocked on an external system.
type Advisor interface {
	// WelcomeMessage is shown once when a learner enters a room. Epistemic
	// framing, not motivational; normalizes confusion about the subject.
	WelcomeMessage(ctx context.Context, learnerName, subject string) string
	// ScaffoldingHint mirrors the learner's reasoning neutrally and asks one
	// forward-advancing question. Never evaluative, never the answer.
	ScaffoldingHint(ctx context.Context, problem, fieldLabel, reasoning string) string
	// ReflectionPrompt is asked after the last quiz question. The score is
	// context only and must not surface as evaluative framing.
	ReflectionPrompt(ctx context.Context, score int) string
}

// Fixed fallback strings, returned verbatim on any failure or timeout.
const (
	FallbackWelcome    = "Selamat datang! Ruang ini aman untuk mencoba tanpa takut dinilai."
	FallbackScaffold   = "Kamu sedang mengeksplorasi hubungan antar variabel. Bagaimana caramu memastikan langkah berikutnya?"
	FallbackReflection = "Bagaimana perasaanmu setelah melewati tantangan soal-soal tadi?"
)
