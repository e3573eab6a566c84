package stream_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/goliatone/go-formsync/pkg/stream"
)

var _ = Describe("SSEDialer", func() {
	var server *httptest.Server

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/feed", func(c *gin.Context) {
			if c.GetHeader("x-api-key") != "secret" {
				c.Status(http.StatusUnauthorized)
				return
			}
			c.Header("Content-Type", "text/event-stream")
			c.Status(http.StatusOK)
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			fmt.Fprint(c.Writer, "event: update\ndata: {\"a\":\n")
			fmt.Fprint(c.Writer, "data: 1}\n\n")
			fmt.Fprint(c.Writer, "id: 7\n\n")
			fmt.Fprint(c.Writer, "data:{\"a\":2}\n\n")
			c.Writer.Flush()
		})
		router.GET("/hold", func(c *gin.Context) {
			c.Header("Content-Type", "text/event-stream")
			c.Status(http.StatusOK)
			fmt.Fprint(c.Writer, "data: first\n\n")
			c.Writer.Flush()
			<-c.Request.Context().Done()
		})
		router.GET("/plain", func(c *gin.Context) {
			c.String(http.StatusOK, "hello")
		})
		server = httptest.NewServer(router)
	})

	AfterEach(func() {
		server.Close()
	})

	dial := func(path string) (stream.Conn, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		DeferCleanup(cancel)
		header := http.Header{}
		header.Set("x-api-key", "secret")
		return stream.NewSSEDialer(server.Client(), header).Dial(ctx, server.URL+path)
	}

	It("joins data lines and skips comments and empty events", func() {
		conn, err := dial("/feed")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(conn.Close)

		first, err := conn.Read(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(first)).To(Equal("{\"a\":\n1}"))

		second, err := conn.Read(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(second)).To(Equal(`{"a":2}`))

		_, err = conn.Read(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("unblocks a pending read on close", func() {
		conn, err := dial("/hold")
		Expect(err).NotTo(HaveOccurred())

		first, err := conn.Read(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(first)).To(Equal("first"))

		done := make(chan error, 1)
		go func() {
			_, err := conn.Read(context.Background())
			done <- err
		}()
		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

		Expect(conn.Close()).To(Succeed())
		Eventually(done, time.Second).Should(Receive(HaveOccurred()))
	})

	It("rejects non event-stream responses", func() {
		_, err := dial("/plain")
		Expect(err).To(MatchError(ContainSubstring("content type")))
	})

	It("rejects non-200 responses", func() {
		ctx := context.Background()
		_, err := stream.NewSSEDialer(server.Client(), nil).Dial(ctx, server.URL+"/feed")
		Expect(err).To(MatchError(ContainSubstring("401")))
	})
})
