package reward

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/winsome-service/internal/store"
	"github.com/princekumarofficial/winsome-service/internal/store/backup"
	"github.com/princekumarofficial/winsome-service/internal/store/content"
	"github.com/princekumarofficial/winsome-service/internal/store/social"
	"github.com/princekumarofficial/winsome-service/internal/utils/password"
)

type fakeGains struct {
	gains []content.CycleGain
}

func (f *fakeGains) CollectCycleGains() []content.CycleGain {
	return f.gains
}

type recordingWallets struct {
	credits map[string]float64
	failFor string
}

func (w *recordingWallets) CreditWallet(username string, amount float64) error {
	if username == w.failFor {
		return store.ErrNoSuchUser
	}
	if w.credits == nil {
		w.credits = make(map[string]float64)
	}
	w.credits[username] += amount
	return nil
}

type recordingPublisher struct {
	credited []string
}

func (p *recordingPublisher) PublishWalletCredited(username string, amount float64) {
	p.credited = append(p.credited, username)
}

func TestRunCycleSplitsGain(t *testing.T) {
	gains := &fakeGains{gains: []content.CycleGain{
		{PostID: 1, Author: "alice", Gain: 1.0, Curators: []string{"bob", "carol"}},
	}}
	wallets := &recordingWallets{}
	publisher := &recordingPublisher{}

	engine := New(gains, wallets, publisher, time.Second, 0.3)
	engine.RunCycle()

	require.InDelta(t, 0.3, wallets.credits["alice"], 1e-9)
	require.InDelta(t, 0.35, wallets.credits["bob"], 1e-9)
	require.InDelta(t, 0.35, wallets.credits["carol"], 1e-9)
	require.Equal(t, []string{"alice", "bob", "carol"}, publisher.credited)
}

func TestRunCycleSkipsZeroGain(t *testing.T) {
	gains := &fakeGains{gains: []content.CycleGain{
		{PostID: 1, Author: "alice", Gain: 0},
		{PostID: 2, Author: "bob", Gain: -0.5},
	}}
	wallets := &recordingWallets{}

	engine := New(gains, wallets, nil, time.Second, 0.3)
	engine.RunCycle()

	require.Empty(t, wallets.credits)
}

func TestRunCycleAuthorKeepsGainWithoutCurators(t *testing.T) {
	gains := &fakeGains{gains: []content.CycleGain{
		{PostID: 1, Author: "alice", Gain: 0.6},
	}}
	wallets := &recordingWallets{}

	engine := New(gains, wallets, nil, time.Second, 0.3)
	engine.RunCycle()

	require.InDelta(t, 0.6, wallets.credits["alice"], 1e-9)
}

func TestRunCycleSkipsFailedCredit(t *testing.T) {
	gains := &fakeGains{gains: []content.CycleGain{
		{PostID: 1, Author: "ghost", Gain: 1.0, Curators: []string{"bob"}},
	}}
	wallets := &recordingWallets{failFor: "ghost"}
	publisher := &recordingPublisher{}

	engine := New(gains, wallets, publisher, time.Second, 0.3)
	engine.RunCycle()

	// The author credit failed but the curator is still paid, and only the
	// successful credit is published.
	require.InDelta(t, 0.7, wallets.credits["bob"], 1e-9)
	require.Equal(t, []string{"bob"}, publisher.credited)
}

func TestRunCycleAgainstRealStores(t *testing.T) {
	dir := t.TempDir()
	socialStore, err := social.Open(
		backup.NewFile(filepath.Join(dir, "users.json")),
		backup.NewFile(filepath.Join(dir, "following.json")),
	)
	require.NoError(t, err)
	contentStore, err := content.Open(
		backup.NewFile(filepath.Join(dir, "posts.json")),
		backup.NewFile(filepath.Join(dir, "engagement.json")),
		socialStore,
	)
	require.NoError(t, err)

	for _, name := range []string{"alice", "bob"} {
		salt, err := password.NewSalt()
		require.NoError(t, err)
		require.NoError(t, socialStore.Register(name, password.Hash("pw", salt), salt, nil))
	}
	_, err = socialStore.Follow("bob", "alice")
	require.NoError(t, err)

	id, err := contentStore.CreatePost("alice", "hi", "world")
	require.NoError(t, err)
	require.NoError(t, contentStore.Vote("bob", id, true))

	engine := New(contentStore, socialStore, nil, time.Second, 0.3)
	engine.RunCycle()

	gain := math.Log(2)

	wallet, err := socialStore.WalletOf("alice")
	require.NoError(t, err)
	require.InDelta(t, 0.3*gain, wallet.Balance, 1e-9)
	require.Len(t, wallet.Transactions, 1)

	wallet, err = socialStore.WalletOf("bob")
	require.NoError(t, err)
	require.InDelta(t, 0.7*gain, wallet.Balance, 1e-9)

	// Counters were reset: an immediate second cycle pays nobody further.
	engine.RunCycle()
	wallet, err = socialStore.WalletOf("alice")
	require.NoError(t, err)
	require.InDelta(t, 0.3*gain, wallet.Balance, 1e-9)
}
