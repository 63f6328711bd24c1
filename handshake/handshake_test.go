package handshake_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/renproject/p2pass/codec"
	"github.com/renproject/phi"
	"go.uber.org/zap"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	. "github.com/renproject/p2pass/handshake"
)

var _ = Describe("Handshake", func() {
	opts := DefaultOptions().
		WithLogger(zap.NewNop()).
		WithTimeout(5 * time.Second)

	// run both sides of a handshake over a loopback connection, and return
	// once both sides are done.
	run := func(payload []byte, initiatorOpts, responderOpts Options) (Receipt, error, Transfer, error) {
		client, server := connPair()
		defer client.Close()

		var receipt Receipt
		var transfer Transfer
		var initiateErr, acceptErr error
		phi.ParBegin(func() {
			receipt, initiateErr = Initiate(context.Background(), client, payload, initiatorOpts)
		}, func() {
			defer server.Close()
			transfer, acceptErr = Accept(context.Background(), server, responderOpts)
		})
		return receipt, initiateErr, transfer, acceptErr
	}

	Context("when both peers follow the protocol", func() {
		It("should deliver the payload", func() {
			receipt, initiateErr, transfer, acceptErr := run([]byte("Hello, world!"), opts, opts)
			Expect(initiateErr).ToNot(HaveOccurred())
			Expect(acceptErr).ToNot(HaveOccurred())

			Expect(receipt.State).To(Equal(ClosingClean))
			Expect(transfer.State).To(Equal(Delivered))
			Expect(transfer.Payload).To(Equal([]byte("Hello, world!")))
			Expect(receipt.Digest).To(Equal(transfer.Digest))
			Expect(receipt.Remote).To(Equal("315f5bdb76d078c43b8ac0064e4a0164612b1fce77c869345bfc94c75894edd3"))
		})

		It("should deliver a payload that is an exact multiple of a read buffer", func() {
			payload := bytes.Repeat([]byte("abcd"), 1024)
			_, initiateErr, transfer, acceptErr := run(payload, opts, opts)
			Expect(initiateErr).ToNot(HaveOccurred())
			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(transfer.Payload).To(Equal(payload))
		})

		It("should deliver an empty payload", func() {
			_, initiateErr, transfer, acceptErr := run([]byte{}, opts, opts)
			Expect(initiateErr).ToNot(HaveOccurred())
			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(transfer.State).To(Equal(Delivered))
			Expect(transfer.Payload).To(BeEmpty())
		})

		It("should deliver binary payloads when text is not required", func() {
			payload := []byte{0x00, 0xff, 0xfe, 0x80}
			_, initiateErr, transfer, acceptErr := run(payload, opts, opts.WithRequireText(false))
			Expect(initiateErr).ToNot(HaveOccurred())
			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(transfer.Payload).To(Equal(payload))
		})
	})

	Context("when the initiator rejects the integrity acknowledgement", func() {
		It("should send ERR and the responder should not deliver", func() {
			errRejected := errors.New("rejected")
			initiatorOpts := opts.WithConfirm(func(Digest, string) error { return errRejected })

			receipt, initiateErr, transfer, acceptErr := run([]byte("Hello, world!"), initiatorOpts, opts)
			Expect(initiateErr).To(Equal(errRejected))
			Expect(receipt.State).To(Equal(Rejected))

			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(transfer.State).To(Equal(Rejected))
			Expect(transfer.Payload).To(BeNil())
		})

		It("should reject a digest that does not match", func() {
			responderOpts := opts.WithDigest(Keccak256)

			receipt, initiateErr, transfer, acceptErr := run([]byte("Hello, world!"), opts, responderOpts)
			var errMismatch ErrDigestMismatch
			Expect(errors.As(initiateErr, &errMismatch)).To(BeTrue())
			Expect(errMismatch.Local).To(Equal(receipt.Digest.String()))
			Expect(errMismatch.Remote).To(Equal(Keccak256([]byte("Hello, world!")).String()))
			Expect(receipt.State).To(Equal(Rejected))

			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(transfer.State).To(Equal(Rejected))
		})

		It("should accept any digest when verification is disabled", func() {
			initiatorOpts := opts.WithConfirm(AcceptAnyDigest)
			responderOpts := opts.WithDigest(Blake2b256)

			receipt, initiateErr, transfer, acceptErr := run([]byte("Hello, world!"), initiatorOpts, responderOpts)
			Expect(initiateErr).ToNot(HaveOccurred())
			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(receipt.State).To(Equal(ClosingClean))
			Expect(transfer.State).To(Equal(Delivered))
		})
	})

	Context("when the payload is too large", func() {
		It("should fail on the initiator before anything is sent", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			receipt, err := Initiate(context.Background(), client, []byte("Hello, world!"), opts.WithMaxPayloadSize(4))
			var errTooLarge ErrPayloadTooLarge
			Expect(errors.As(err, &errTooLarge)).To(BeTrue())
			Expect(errTooLarge.Size).To(Equal(uint64(13)))
			Expect(receipt.State).To(Equal(Idle))
		})

		It("should fail on the responder without reading the payload", func() {
			_, initiateErr, transfer, acceptErr := run([]byte("Hello, world!"), opts, opts.WithMaxPayloadSize(4))
			var errTooLarge ErrPayloadTooLarge
			Expect(errors.As(acceptErr, &errTooLarge)).To(BeTrue())
			Expect(transfer.State).To(Equal(ReceivingPayload))
			Expect(initiateErr).To(HaveOccurred())
		})
	})

	Context("when the payload is not valid text", func() {
		It("should fail on the responder", func() {
			payload := []byte("Hello\xff")
			_, initiateErr, transfer, acceptErr := run(payload, opts, opts)

			var errEncoding ErrInvalidEncoding
			Expect(errors.As(acceptErr, &errEncoding)).To(BeTrue())
			Expect(errEncoding.Offset).To(Equal(5))
			Expect(transfer.Payload).To(BeNil())

			var errTransport ErrTransportFailure
			Expect(errors.As(initiateErr, &errTransport)).To(BeTrue())
			Expect(errTransport.State).To(Equal(AwaitingIntegrityAck))
		})
	})

	Context("when the initiator sends an unexpected control frame", func() {
		It("should return a protocol violation for a bad wakeup", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			Expect(codec.WriteLine(client, "HELLO")).To(Succeed())
			transfer, err := Accept(context.Background(), server, opts)

			var errViolation ErrProtocolViolation
			Expect(errors.As(err, &errViolation)).To(BeTrue())
			Expect(errViolation.State).To(Equal(AwaitingWakeup))
			Expect(errViolation.Expected).To(Equal(FrameWakeup))
			Expect(errViolation.Got).To(Equal("HELLO"))
			Expect(transfer.Payload).To(BeNil())
		})

		It("should not wait for the newline of a bad wakeup", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			_, err := client.Write([]byte("HELLO"))
			Expect(err).ToNot(HaveOccurred())
			start := time.Now()
			_, err = Accept(context.Background(), server, opts.WithTimeout(10*time.Second))

			var errViolation ErrProtocolViolation
			Expect(errors.As(err, &errViolation)).To(BeTrue())
			Expect(errViolation.State).To(Equal(AwaitingWakeup))
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
		})

		It("should return a protocol violation for a wakeup that never ends", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			go client.Write(bytes.Repeat([]byte("W"), 1024))
			_, err := Accept(context.Background(), server, opts)
			Expect(errors.As(err, new(ErrProtocolViolation))).To(BeTrue())
		})

		It("should return a protocol violation for a bad farewell", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			var transfer Transfer
			var acceptErr, rawErr error
			phi.ParBegin(func() {
				transfer, acceptErr = Accept(context.Background(), server, opts)
			}, func() {
				rawErr = rawInitiator(client, []byte("Hello, world!"), "MAYBE\n")
			})
			Expect(rawErr).ToNot(HaveOccurred())

			var errViolation ErrProtocolViolation
			Expect(errors.As(acceptErr, &errViolation)).To(BeTrue())
			Expect(errViolation.State).To(Equal(AwaitingFarewell))
			Expect(errViolation.Got).To(Equal("MAYBE"))
			Expect(transfer.Payload).To(BeNil())
		})

		It("should accept a farewell without a newline when the initiator half-closes", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			var transfer Transfer
			var acceptErr, rawErr error
			phi.ParBegin(func() {
				transfer, acceptErr = Accept(context.Background(), server, opts)
			}, func() {
				if rawErr = rawInitiator(client, []byte("Hello, world!"), FrameGoodbye); rawErr == nil {
					rawErr = client.(*net.TCPConn).CloseWrite()
				}
			})
			Expect(rawErr).ToNot(HaveOccurred())
			Expect(acceptErr).ToNot(HaveOccurred())
			Expect(transfer.State).To(Equal(Delivered))
			Expect(transfer.Payload).To(Equal([]byte("Hello, world!")))
		})
	})

	Context("when the responder sends an unexpected control frame", func() {
		It("should return an unexpected response instead of an ack", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			go func() {
				r := bufio.NewReader(server)
				if _, err := codec.ReadLine(r, codec.MaxLineLength); err == nil {
					codec.WriteLine(server, "NACK")
				}
			}()
			receipt, err := Initiate(context.Background(), client, []byte("Hello, world!"), opts)

			var errUnexpected ErrUnexpectedResponse
			Expect(errors.As(err, &errUnexpected)).To(BeTrue())
			Expect(errUnexpected.State).To(Equal(AwaitingWakeupAck))
			Expect(errUnexpected.Got).To(Equal("NACK"))
			Expect(receipt.State).To(Equal(AwaitingWakeupAck))
		})

		It("should return an unexpected response instead of an integrity ack", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			go func() {
				r := bufio.NewReader(server)
				if _, err := codec.ReadLine(r, codec.MaxLineLength); err != nil {
					return
				}
				codec.WriteLine(server, FrameAck)
				if _, err := codec.ReadLengthPrefixed(r, codec.PlainDecoder, 1024); err != nil {
					return
				}
				codec.WriteLine(server, FrameIntegrityAckPrefix)
			}()
			_, err := Initiate(context.Background(), client, []byte("Hello, world!"), opts)

			var errUnexpected ErrUnexpectedResponse
			Expect(errors.As(err, &errUnexpected)).To(BeTrue())
			Expect(errUnexpected.State).To(Equal(AwaitingIntegrityAck))
		})
	})

	Context("when the remote peer stops responding", func() {
		It("should time out on the responder", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			start := time.Now()
			_, err := Accept(context.Background(), server, opts.WithTimeout(100*time.Millisecond))
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))

			var errTransport ErrTransportFailure
			Expect(errors.As(err, &errTransport)).To(BeTrue())
			var netErr net.Error
			Expect(errors.As(err, &netErr)).To(BeTrue())
			Expect(netErr.Timeout()).To(BeTrue())
		})

		It("should stop when the context is cancelled", func() {
			client, server := connPair()
			defer client.Close()
			defer server.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_, err := Initiate(ctx, client, []byte("Hello, world!"), opts.WithTimeout(0))
			Expect(errors.As(err, new(ErrTransportFailure))).To(BeTrue())
		})

		It("should leave no deadline on the connection once it returns", func() {
			for i := 0; i < 20; i++ {
				client, server := connPair()

				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				_, err := Accept(ctx, server, opts)
				Expect(err).To(HaveOccurred())

				// The connection still belongs to the caller, and must not
				// time out.
				_, err = client.Write([]byte("WAKEUP\n"))
				Expect(err).ToNot(HaveOccurred())
				buf := make([]byte, 7)
				_, err = io.ReadFull(server, buf)
				Expect(err).ToNot(HaveOccurred())
				Expect(string(buf)).To(Equal("WAKEUP\n"))

				client.Close()
				server.Close()
			}
		})
	})
})

var _ = Describe("Digests", func() {
	It("should hash with SHA-256 by default", func() {
		Expect(SHA256([]byte("Hello, world!")).String()).To(Equal("315f5bdb76d078c43b8ac0064e4a0164612b1fce77c869345bfc94c75894edd3"))
	})

	It("should look up digest functions by name", func() {
		for _, name := range []string{"sha256", "SHA-256", "keccak256", "blake2b256", ""} {
			f, err := DigestFuncByName(name)
			Expect(err).ToNot(HaveOccurred())
			Expect(f).ToNot(BeNil())
		}
		_, err := DigestFuncByName("md5")
		Expect(err).To(HaveOccurred())
	})

	It("should produce different digests for different algorithms", func() {
		payload := []byte("Hello, world!")
		Expect(Keccak256(payload)).ToNot(Equal(SHA256(payload)))
		Expect(Blake2b256(payload)).ToNot(Equal(SHA256(payload)))
	})

	It("should verify digests regardless of case", func() {
		digest := SHA256([]byte("Hello, world!"))
		Expect(VerifyDigest(digest, digest.String())).To(Succeed())
		Expect(VerifyDigest(digest, "315F5BDB76D078C43B8AC0064E4A0164612B1FCE77C869345BFC94C75894EDD3")).To(Succeed())
		Expect(VerifyDigest(digest, "00")).ToNot(Succeed())
	})
})

var _ = Describe("States", func() {
	It("should have readable names", func() {
		Expect(AwaitingWakeup.String()).To(Equal("awaiting-wakeup"))
		Expect(ClosingClean.String()).To(Equal("closing-clean"))
		Expect(Rejected.String()).To(Equal("rejected"))
	})

	It("should know which states are terminal", func() {
		Expect(ClosingClean.Terminal()).To(BeTrue())
		Expect(Delivered.Terminal()).To(BeTrue())
		Expect(Rejected.Terminal()).To(BeTrue())
		Expect(Sending.Terminal()).To(BeFalse())
		Expect(AwaitingFarewell.Terminal()).To(BeFalse())
	})
})

// rawInitiator drives the initiator side of the protocol by hand, ending with
// the given farewell bytes.
func rawInitiator(conn net.Conn, payload []byte, farewell string) error {
	r := bufio.NewReader(conn)
	if err := codec.WriteLine(conn, FrameWakeup); err != nil {
		return err
	}
	if _, err := codec.ReadLine(r, codec.MaxLineLength); err != nil {
		return err
	}
	enc := codec.LengthPrefixEncoder(codec.PlainEncoder, codec.PlainEncoder)
	if _, err := enc(conn, payload); err != nil {
		return err
	}
	if _, err := codec.ReadLine(r, codec.MaxLineLength); err != nil {
		return err
	}
	_, err := conn.Write([]byte(farewell))
	return err
}
