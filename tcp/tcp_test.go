package tcp_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/renproject/p2pass/policy"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	. "github.com/renproject/p2pass/tcp"
)

var _ = Describe("TCP", func() {
	// echo replies to a single line.
	echo := func(_ context.Context, conn net.Conn) {
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		conn.Write([]byte(line))
	}

	// send a line over a new connection and return the reply.
	send := func(ctx context.Context, addr string) (string, error) {
		reply := ""
		err := Dial(ctx, addr, func(conn net.Conn) error {
			if _, err := conn.Write([]byte("ping\n")); err != nil {
				return err
			}
			var err error
			reply, err = bufio.NewReader(conn).ReadString('\n')
			return err
		}, time.Second)
		return reply, err
	}

	Context("when listening", func() {
		It("should handle connections until the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			listener, _, err := ListenerWithAssignedPort(ctx, net.ParseIP("127.0.0.1"))
			Expect(err).ToNot(HaveOccurred())

			done := make(chan error, 1)
			go func() {
				done <- ListenWithListener(ctx, listener, echo, nil, nil)
			}()

			for i := 0; i < 10; i++ {
				reply, err := send(ctx, listener.Addr().String())
				Expect(err).ToNot(HaveOccurred())
				Expect(reply).To(Equal("ping\n"))
			}

			cancel()
			Eventually(done).Should(Receive(Equal(context.Canceled)))
		})

		It("should handle connections concurrently", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			listener, _, err := ListenerWithAssignedPort(ctx, net.ParseIP("127.0.0.1"))
			Expect(err).ToNot(HaveOccurred())

			block := make(chan struct{})
			handled := int64(0)
			go ListenWithListener(ctx, listener, func(ctx context.Context, conn net.Conn) {
				if atomic.AddInt64(&handled, 1) == 1 {
					<-block
					return
				}
				echo(ctx, conn)
			}, nil, nil)

			// The first connection blocks its handler, but not the loop.
			go Dial(ctx, listener.Addr().String(), func(conn net.Conn) error {
				<-block
				return nil
			}, time.Second)
			Eventually(func() int64 { return atomic.LoadInt64(&handled) }).Should(Equal(int64(1)))

			reply, err := send(ctx, listener.Addr().String())
			Expect(err).ToNot(HaveOccurred())
			Expect(reply).To(Equal("ping\n"))
			close(block)
		})

		It("should close connections that are not allowed", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			listener, _, err := ListenerWithAssignedPort(ctx, net.ParseIP("127.0.0.1"))
			Expect(err).ToNot(HaveOccurred())

			errs := make(chan error, 10)
			deny := func(net.Conn) (policy.Cleanup, error) { return nil, policy.ErrMaxConnectionsExceeded }
			go ListenWithListener(ctx, listener, echo, func(err error) { errs <- err }, deny)

			_, err = send(ctx, listener.Addr().String())
			Expect(err).To(HaveOccurred())

			var filterErr error
			Eventually(errs).Should(Receive(&filterErr))
			Expect(errors.Is(filterErr, policy.ErrMaxConnectionsExceeded)).To(BeTrue())
		})

		It("should return an error without a handle function", func() {
			Expect(Listen(context.Background(), "127.0.0.1:0", nil, nil, nil)).ToNot(Succeed())
		})
	})

	Context("when dialing", func() {
		It("should return an error when nobody is listening", func() {
			listener, _, err := ListenerWithAssignedPort(context.Background(), net.ParseIP("127.0.0.1"))
			Expect(err).ToNot(HaveOccurred())
			addr := listener.Addr().String()
			Expect(listener.Close()).To(Succeed())

			called := false
			err = Dial(context.Background(), addr, func(net.Conn) error {
				called = true
				return nil
			}, time.Second)
			Expect(err).To(HaveOccurred())
			Expect(called).To(BeFalse())
		})

		It("should return the error of the handle function", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			listener, _, err := ListenerWithAssignedPort(ctx, net.ParseIP("127.0.0.1"))
			Expect(err).ToNot(HaveOccurred())
			go ListenWithListener(ctx, listener, echo, nil, nil)

			errHandle := errors.New("handle")
			err = Dial(ctx, listener.Addr().String(), func(net.Conn) error { return errHandle }, time.Second)
			Expect(err).To(Equal(errHandle))
		})
	})
})
