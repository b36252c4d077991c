package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderWithoutCommitRegistersNothing(t *testing.T) {
	bus := newTestBus()
	calls := 0

	_ = Subscribe[CountEvent](bus).ForObject("x").OnNext(func(CountEvent) { calls++ })
	Post(bus, CountEvent{})
	PostObject(bus, CountEvent{}, "x")

	assert.Zero(t, calls)
	assert.False(t, HasSubscribers[CountEvent](bus))
}

func TestBuilderWithoutHandlerCommitsNothing(t *testing.T) {
	bus := newTestBus()

	tok := Subscribe[CountEvent](bus).Commit()
	assert.False(t, tok.Active())

	tok = Subscribe[CountEvent](bus).OnNext(nil).DisposedBy(NewDisposeBag())
	assert.False(t, tok.Active())
	assert.False(t, HasSubscribers[CountEvent](bus))
}

func TestBuilderNilBagCommits(t *testing.T) {
	bus := newTestBus()
	calls := 0

	tok := Subscribe[CountEvent](bus).OnNext(func(CountEvent) { calls++ }).DisposedBy(nil)
	Post(bus, CountEvent{})

	assert.True(t, tok.Active())
	assert.Equal(t, 1, calls)
}

func TestBuilderForObjectNilClearsFilter(t *testing.T) {
	bus := newTestBus()
	calls := 0

	Subscribe[CountEvent](bus).ForObject("x").ForObject(nil).OnNext(func(CountEvent) { calls++ }).Commit()
	Post(bus, CountEvent{})

	assert.Equal(t, 1, calls)
}

func TestBuilderOnEventReceivesEvent(t *testing.T) {
	bus := newTestBus()
	var got CountEvent

	Subscribe[CountEvent](bus).OnEvent(func(e CountEvent, _ any) { got = e }).Commit()
	Post(bus, CountEvent{Count: 42})

	assert.Equal(t, 42, got.Count)
}

func TestBuilderLastHandlerWins(t *testing.T) {
	bus := newTestBus()
	rec := &recorder{}

	Subscribe[CountEvent](bus).
		OnNext(func(CountEvent) { rec.add("next") }).
		OnEvent(func(CountEvent, any) { rec.add("event") }).
		Commit()
	Post(bus, CountEvent{})

	assert.Equal(t, []string{"event"}, rec.snapshot())
}

func TestBuilderNilBus(t *testing.T) {
	tok := Subscribe[CountEvent](nil).OnNext(func(CountEvent) {}).Commit()
	assert.False(t, tok.Active())
}
