package stream_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/goliatone/go-formsync/pkg/stream"
)

type tick struct {
	Count int `json:"count"`
}

type recorder struct {
	mu       sync.Mutex
	opens    int
	errors   int
	messages []tick
}

func (r *recorder) handlers() stream.Handlers[tick] {
	return stream.Handlers[tick]{
		OnOpen: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.opens++
		},
		OnMessage: func(m tick) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, m)
		},
		OnError: func(error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors++
		},
	}
}

func (r *recorder) Opens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

func (r *recorder) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

func (r *recorder) Messages() []tick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tick(nil), r.messages...)
}

var _ = Describe("Policy", func() {
	It("grows linearly and caps", func() {
		p := stream.DefaultPolicy
		Expect(p.Delay(1)).To(Equal(4 * time.Second))
		Expect(p.Delay(2)).To(Equal(8 * time.Second))
		Expect(p.Delay(3)).To(Equal(12 * time.Second))
		Expect(p.Delay(4)).To(Equal(15 * time.Second))
		Expect(p.Delay(40)).To(Equal(15 * time.Second))
		Expect(p.Delay(0)).To(Equal(4 * time.Second))
	})
})

var _ = Describe("Client", func() {
	var (
		dialer *scriptedDialer
		clock  *manualClock
		rec    *recorder
		client *stream.Client[tick]
	)

	BeforeEach(func() {
		dialer = &scriptedDialer{}
		clock = &manualClock{}
		rec = &recorder{}
		client = stream.New[tick](dialer, rec.handlers(), stream.WithClock(clock))
	})

	AfterEach(func() {
		Expect(client.Close()).To(Succeed())
	})

	It("stays idle without a target", func() {
		Expect(client.State()).To(Equal(stream.StateIdle))
		Expect(client.SetTarget("")).To(Succeed())
		Consistently(dialer.Dials, 50*time.Millisecond).Should(BeEmpty())
	})

	It("opens and delivers decoded messages", func() {
		Expect(client.SetTarget("feed-1")).To(Succeed())
		Eventually(rec.Opens).Should(Equal(1))
		Expect(client.State()).To(Equal(stream.StateOpen))

		conn := dialer.Conn(0)
		conn.frames <- []byte(`{"count":1}`)
		conn.frames <- []byte(`not json`)
		conn.frames <- []byte(`{"count":2}`)

		Eventually(rec.Messages).Should(Equal([]tick{{Count: 1}, {Count: 2}}))
		Expect(rec.Errors()).To(BeZero())
		Expect(client.Attempt()).To(BeZero())
	})

	It("backs off linearly up to the cap and resets after a successful open", func() {
		dialer.SetFailures(4)
		Expect(client.SetTarget("feed-1")).To(Succeed())

		for i := 1; i <= 4; i++ {
			Eventually(clock.Delays).Should(HaveLen(i))
			Expect(client.State()).To(Equal(stream.StateWaiting))
			Expect(client.Attempt()).To(Equal(i))
			clock.Fire()
		}
		Expect(clock.Delays()).To(Equal([]time.Duration{
			4 * time.Second, 8 * time.Second, 12 * time.Second, 15 * time.Second,
		}))

		Eventually(rec.Opens).Should(Equal(1))
		Expect(client.Attempt()).To(BeZero())

		dialer.Conn(0).fail <- errRefused
		Eventually(clock.Delays).Should(HaveLen(5))
		Expect(clock.Delays()[4]).To(Equal(4 * time.Second))
		Expect(rec.Errors()).To(Equal(5))
		Expect(dialer.Conn(0).IsClosed()).To(BeTrue())
	})

	It("keeps a single pending retry", func() {
		dialer.SetFailures(1)
		Expect(client.SetTarget("feed-1")).To(Succeed())
		Eventually(clock.Delays).Should(HaveLen(1))
		Consistently(clock.Delays, 50*time.Millisecond).Should(HaveLen(1))
		Expect(dialer.Dials()).To(HaveLen(1))
	})

	It("closes the old connection when the target changes", func() {
		Expect(client.SetTarget("feed-1")).To(Succeed())
		Eventually(dialer.ConnCount).Should(Equal(1))
		first := dialer.Conn(0)

		Expect(client.SetTarget("feed-2")).To(Succeed())
		Expect(first.IsClosed()).To(BeTrue())
		Eventually(dialer.Dials).Should(Equal([]string{"feed-1", "feed-2"}))
		Expect(client.Target()).To(Equal("feed-2"))
	})

	It("cancels a pending retry on Close and never reconnects", func() {
		dialer.SetFailures(1)
		Expect(client.SetTarget("feed-1")).To(Succeed())
		Eventually(clock.Delays).Should(HaveLen(1))

		Expect(client.Close()).To(Succeed())
		clock.Fire()
		Consistently(dialer.Dials, 50*time.Millisecond).Should(HaveLen(1))
		Expect(client.State()).To(Equal(stream.StateClosed))
		Expect(client.SetTarget("feed-1")).To(MatchError(stream.ErrClosed))
	})

	It("dispatches to handlers swapped in after connecting", func() {
		Expect(client.SetTarget("feed-1")).To(Succeed())
		Eventually(rec.Opens).Should(Equal(1))

		latest := &recorder{}
		client.SetHandlers(latest.handlers())
		dialer.Conn(0).frames <- []byte(`{"count":7}`)

		Eventually(latest.Messages).Should(Equal([]tick{{Count: 7}}))
		Expect(rec.Messages()).To(BeEmpty())
	})
})
