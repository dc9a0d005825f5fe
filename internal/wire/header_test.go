package wire_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/qbusio/qbus/internal/wire"
)

var _ = Describe("Header", func() {
	It("round-trips every valid header", func() {
		buf := wire.EncodeHeader(nil, wire.Produce, 0xdeadbeef, 42)
		h, ok, err := wire.DecodeHeader(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(h.Op).To(Equal(wire.Produce))
		Expect(h.StreamID).To(Equal(uint32(0xdeadbeef)))
		Expect(h.BodyLen).To(Equal(uint32(42)))
	})

	It("reports incomplete without consuming on underflow", func() {
		buf := wire.EncodeHeader(nil, wire.Consume, 1, 0)
		_, ok, err := wire.DecodeHeader(buf[:wire.HeaderLen-1])
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("is fatal on bad magic", func() {
		buf := wire.EncodeHeader(nil, wire.Metadata, 1, 0)
		buf[0] ^= 0xff
		_, _, err := wire.DecodeHeader(buf)
		Expect(err).To(HaveOccurred())
	})

	It("is fatal on bad version", func() {
		buf := wire.EncodeHeader(nil, wire.Metadata, 1, 0)
		buf[4] = 9
		_, _, err := wire.DecodeHeader(buf)
		Expect(err).To(HaveOccurred())
	})

	It("is fatal on an unknown opcode", func() {
		buf := wire.EncodeHeader(nil, wire.Metadata, 1, 0)
		buf[5] = 0xaa
		_, _, err := wire.DecodeHeader(buf)
		Expect(err).To(HaveOccurred())
	})

	It("does not consume header bytes when the body is still short", func() {
		buf := wire.EncodeHeader(nil, wire.Produce, 1, 100)
		h, ok, err := wire.DecodeHeader(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(h.BodyLen).To(Equal(uint32(100)))
		Expect(len(buf)).To(Equal(wire.HeaderLen))
	})
})
