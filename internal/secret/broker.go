// Package secret handles agent requests for human-supplied secrets.
package secret

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
)

// Request is an agent's ask for a human-provided secret.
type Request struct {
	Question string
	KeyName  string
	Storage  string
}

// Prompter solicits a value from the operator through a hidden-input
// channel. It blocks until the operator responds; this is an intentional
// pause point with no timeout.
type Prompter interface {
	Ask(question, keyName string) (string, error)
}

// HiddenPrompter reads a masked value from the terminal.
type HiddenPrompter struct{}

func (HiddenPrompter) Ask(question, keyName string) (string, error) {
	fmt.Println()
	fmt.Println("===================================")
	fmt.Println("[AGENT REQUESTS HUMAN INPUT]")
	fmt.Println(question)
	fmt.Printf("Expected variable name: %s\n", keyName)
	fmt.Println("===================================")

	prompt := promptui.Prompt{
		Label: fmt.Sprintf("Enter value for %s", keyName),
		Mask:  '*',
	}
	return prompt.Run()
}

// Broker resolves secret requests against an injectable store.
type Broker struct {
	store    Store
	prompter Prompter
}

// NewBroker creates a broker over the given store and prompter.
func NewBroker(store Store, prompter Prompter) *Broker {
	return &Broker{store: store, prompter: prompter}
}

// Resolve handles one secret request and returns the synthetic
// CommandResult to append to the worker transcript. Idempotent: a key that
// already resolves skips the prompt entirely. The secret value itself never
// appears in the returned result or any log.
func (b *Broker) Resolve(req Request) run.CommandResult {
	keyName := req.KeyName
	if keyName == "" {
		keyName = "SECRET_KEY"
	}

	if _, ok := b.store.Get(keyName); ok {
		app.GetLogger().Info("secret %s already present; skipping prompt", keyName)
		return confirmResult(keyName)
	}

	value, err := b.prompter.Ask(req.Question, keyName)
	if err != nil {
		app.GetLogger().Error("secret prompt for %s failed: %v", keyName, err)
		return confirmFailedResult(keyName)
	}

	if err := b.store.Set(keyName, value); err != nil {
		app.GetLogger().Error("storing secret %s failed: %v", keyName, err)
	}

	// Re-read to confirm presence before the worker continues.
	if _, ok := b.store.Get(keyName); ok {
		app.GetLogger().Info("secret confirmed: %s", keyName)
		return confirmResult(keyName)
	}

	app.GetLogger().Error("secret confirmation failed: %s", keyName)
	return confirmFailedResult(keyName)
}

func confirmResult(keyName string) run.CommandResult {
	return run.CommandResult{
		Command:    fmt.Sprintf("%s %s", run.MarkerConfirmSecret, keyName),
		Stdout:     fmt.Sprintf("Secret %s is present in the environment.", keyName),
		ReturnCode: 0,
	}
}

func confirmFailedResult(keyName string) run.CommandResult {
	return run.CommandResult{
		Command:    fmt.Sprintf("%s %s", run.MarkerConfirmSecretFailed, keyName),
		Stderr:     fmt.Sprintf("Secret %s is NOT present in the environment.", keyName),
		ReturnCode: 1,
	}
}
