package analytics_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/goliatone/go-formsync/pkg/analytics"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/stream"
)

type feedConn struct {
	frames chan []byte
	fail   chan error
	closed chan struct{}
	once   sync.Once
}

func (c *feedConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.fail:
		return nil, err
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *feedConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type feedDialer struct {
	mu      sync.Mutex
	targets []string
	conns   []*feedConn
}

func (d *feedDialer) Dial(_ context.Context, target string) (stream.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	conn := &feedConn{
		frames: make(chan []byte, 8),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	d.targets = append(d.targets, target)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *feedDialer) Targets() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.targets...)
}

func (d *feedDialer) Last() *feedConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

// retryClock only lets a retry through when a tick is sent on fire.
type retryClock struct {
	fire chan time.Time
}

func (c retryClock) After(time.Duration) <-chan time.Time { return c.fire }

var _ = Describe("Synchronizer", func() {
	var (
		dialer  *feedDialer
		fetches map[string]func() (model.AnalyticsSnapshot, error)
		fetchMu sync.Mutex
		syncer  *analytics.Synchronizer
		clock   retryClock
		stamp   time.Time
	)

	snapshotFor := func(formID string, total int) model.AnalyticsSnapshot {
		return model.AnalyticsSnapshot{
			FormID:         formID,
			TotalResponses: total,
			Fields: []model.FieldAnalytics{
				{FieldID: "rate", Data: model.RatingAnalytics{Avg: 4, Histogram: []model.ScoreCount{}}},
			},
		}
	}

	BeforeEach(func() {
		dialer = &feedDialer{}
		fetches = map[string]func() (model.AnalyticsSnapshot, error){}
		clock = retryClock{fire: make(chan time.Time)}
		stamp = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		fetcher := analytics.FetchFunc(func(_ context.Context, formID string) (model.AnalyticsSnapshot, error) {
			fetchMu.Lock()
			fn := fetches[formID]
			fetchMu.Unlock()
			if fn == nil {
				return model.AnalyticsSnapshot{}, errors.New("not found")
			}
			return fn()
		})
		syncer = analytics.NewSynchronizer(fetcher, dialer,
			func(formID string) string { return "feed/" + formID },
			analytics.WithNow(func() time.Time { return stamp }),
			analytics.WithStreamOptions(stream.WithClock(clock)),
		)
	})

	AfterEach(func() {
		Expect(syncer.Close()).To(Succeed())
	})

	It("bootstraps, goes live and merges deltas", func() {
		fetches["f1"] = func() (model.AnalyticsSnapshot, error) { return snapshotFor("f1", 2), nil }
		syncer.Activate(context.Background(), "f1")

		Eventually(syncer.Status).Should(Equal(analytics.StatusLive))
		Expect(dialer.Targets()).To(Equal([]string{"feed/f1"}))

		dialer.Last().frames <- []byte(`{"totalResponses":3,"fields":[{"fieldId":"color","type":"checkbox","distribution":[{"optionId":"r","count":1}]}]}`)
		Eventually(func() int {
			snap, _ := syncer.Snapshot()
			return snap.TotalResponses
		}).Should(Equal(3))

		snap, ok := syncer.Snapshot()
		Expect(ok).To(BeTrue())
		Expect(snap.Fields).To(HaveLen(2))
		Expect(snap.Fields[0].FieldID).To(Equal("rate"))
		Expect(snap.Fields[1].Key().String()).To(Equal("color|checkbox"))
		Expect(snap.UpdatedAt).To(Equal(stamp))
	})

	It("drops malformed deltas", func() {
		fetches["f1"] = func() (model.AnalyticsSnapshot, error) { return snapshotFor("f1", 2), nil }
		syncer.Activate(context.Background(), "f1")
		Eventually(syncer.Status).Should(Equal(analytics.StatusLive))

		dialer.Last().frames <- []byte(`{"fields":[{"fieldId":"q","type":"mystery"}]}`)
		dialer.Last().frames <- []byte(`{"totalResponses":7}`)
		Eventually(func() int {
			snap, _ := syncer.Snapshot()
			return snap.TotalResponses
		}).Should(Equal(7))
		snap, _ := syncer.Snapshot()
		Expect(snap.Fields).To(HaveLen(1))
	})

	It("reports reconnecting after a feed error and goes live again on retry", func() {
		fetches["f1"] = func() (model.AnalyticsSnapshot, error) { return snapshotFor("f1", 2), nil }
		syncer.Activate(context.Background(), "f1")
		Eventually(syncer.Status).Should(Equal(analytics.StatusLive))
		first := dialer.Last()

		first.fail <- errors.New("reset by peer")
		Eventually(syncer.Status).Should(Equal(analytics.StatusReconnecting))
		_, ok := syncer.Snapshot()
		Expect(ok).To(BeTrue())

		Eventually(clock.fire).Should(BeSent(time.Now()))
		Eventually(dialer.Targets).Should(Equal([]string{"feed/f1", "feed/f1"}))
		Eventually(syncer.Status).Should(Equal(analytics.StatusLive))
		Expect(dialer.Last()).NotTo(BeIdenticalTo(first))

		dialer.Last().frames <- []byte(`{"totalResponses":4}`)
		Eventually(func() int {
			snap, _ := syncer.Snapshot()
			return snap.TotalResponses
		}).Should(Equal(4))
	})

	It("collapses duplicate keys in the bootstrap snapshot", func() {
		fetches["f1"] = func() (model.AnalyticsSnapshot, error) {
			snap := snapshotFor("f1", 2)
			snap.Fields = []model.FieldAnalytics{
				{FieldID: "rate", Data: model.RatingAnalytics{Avg: 1, Histogram: []model.ScoreCount{}}},
				{FieldID: "pick", Data: model.MultipleAnalytics{Distribution: []model.OptionCount{}}},
				{FieldID: "rate", Data: model.RatingAnalytics{Avg: 5, Histogram: []model.ScoreCount{}}},
			}
			return snap, nil
		}
		syncer.Activate(context.Background(), "f1")
		Eventually(syncer.Status).Should(Equal(analytics.StatusLive))

		snap, ok := syncer.Snapshot()
		Expect(ok).To(BeTrue())
		Expect(snap.Fields).To(HaveLen(2))
		Expect(snap.Fields[0].FieldID).To(Equal("rate"))
		Expect(snap.Fields[0].Data).To(Equal(model.RatingAnalytics{Avg: 5, Histogram: []model.ScoreCount{}}))
		Expect(snap.Fields[1].FieldID).To(Equal("pick"))

		dialer.Last().frames <- []byte(`{"fields":[{"fieldId":"rate","type":"rating","avg":3,"histogram":[]}]}`)
		Eventually(func() float64 {
			snap, _ := syncer.Snapshot()
			return snap.Fields[0].Data.(model.RatingAnalytics).Avg
		}).Should(Equal(3.0))
		snap, _ = syncer.Snapshot()
		Expect(snap.Fields).To(HaveLen(2))
	})

	It("stays idle without a stream when the bootstrap fails", func() {
		syncer.Activate(context.Background(), "missing")
		Consistently(dialer.Targets, 100*time.Millisecond).Should(BeEmpty())
		Expect(syncer.Status()).To(Equal(analytics.StatusIdle))
		_, ok := syncer.Snapshot()
		Expect(ok).To(BeFalse())
	})

	It("ignores a bootstrap superseded by a newer activation", func() {
		release := make(chan struct{})
		fetches["slow"] = func() (model.AnalyticsSnapshot, error) {
			<-release
			return snapshotFor("slow", 1), nil
		}
		fetches["fast"] = func() (model.AnalyticsSnapshot, error) { return snapshotFor("fast", 9), nil }

		syncer.Activate(context.Background(), "slow")
		syncer.Activate(context.Background(), "fast")
		Eventually(syncer.Status).Should(Equal(analytics.StatusLive))
		close(release)

		Consistently(dialer.Targets, 100*time.Millisecond).Should(Equal([]string{"feed/fast"}))
		snap, _ := syncer.Snapshot()
		Expect(snap.FormID).To(Equal("fast"))
		Expect(syncer.FormID()).To(Equal("fast"))
	})

	It("does not apply a bootstrap that finishes after Close", func() {
		release := make(chan struct{})
		fetches["f1"] = func() (model.AnalyticsSnapshot, error) {
			<-release
			return snapshotFor("f1", 1), nil
		}
		syncer.Activate(context.Background(), "f1")
		Expect(syncer.Close()).To(Succeed())
		close(release)

		Consistently(dialer.Targets, 100*time.Millisecond).Should(BeEmpty())
		_, ok := syncer.Snapshot()
		Expect(ok).To(BeFalse())
	})

	It("signals changes", func() {
		fetches["f1"] = func() (model.AnalyticsSnapshot, error) { return snapshotFor("f1", 2), nil }
		syncer.Activate(context.Background(), "f1")
		Eventually(syncer.Changes()).Should(Receive())
	})
})
