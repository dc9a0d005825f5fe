package wire_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/qbusio/qbus/internal/wire"
)

var _ = Describe("Fields", func() {
	It("round-trips str", func() {
		w := wire.NewWriter(nil)
		Expect(w.PutStr("hello-topic")).To(Succeed())
		r := wire.NewReader(w.Bytes())
		s, ok := r.GetStr()
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal("hello-topic"))
	})

	It("round-trips bytes, including zero-length", func() {
		w := wire.NewWriter(nil)
		w.PutBytes([]byte{})
		r := wire.NewReader(w.Bytes())
		b, ok := r.GetBytes()
		Expect(ok).To(BeTrue())
		Expect(b).To(BeEmpty())
	})

	It("round-trips u32", func() {
		w := wire.NewWriter(nil)
		w.PutU32(1024)
		r := wire.NewReader(w.Bytes())
		v, ok := r.GetU32()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint32(1024)))
	})

	It("accepts a str of exactly 65535 bytes", func() {
		s := strings.Repeat("a", wire.MaxStrLen)
		w := wire.NewWriter(nil)
		Expect(w.PutStr(s)).To(Succeed())
	})

	It("rejects a str of 65536 bytes at encode time", func() {
		s := strings.Repeat("a", wire.MaxStrLen+1)
		w := wire.NewWriter(nil)
		Expect(w.PutStr(s)).To(MatchError(wire.ErrStrTooLong))
	})

	It("returns none on any underflow", func() {
		r := wire.NewReader([]byte{0, 5, 'h', 'i'})
		_, ok := r.GetStr()
		Expect(ok).To(BeFalse())

		r2 := wire.NewReader([]byte{0, 0, 0})
		_, ok = r2.GetU32()
		Expect(ok).To(BeFalse())
	})
})
