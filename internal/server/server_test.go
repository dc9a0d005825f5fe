package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/qbusio/qbus/internal/cluster"
	"github.com/qbusio/qbus/internal/qclient"
	"github.com/qbusio/qbus/internal/registry"
	"github.com/qbusio/qbus/internal/server"
	"github.com/qbusio/qbus/internal/wire"
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "server suite")
}

// startNode brings up one broker node on an OS-assigned loopback port and
// returns its address plus a cancel func that tears it down.
func startNode(self cluster.Node, members []cluster.Node) (addr string, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr = ln.Addr().String()
	ln.Close()

	view := cluster.NewView(self, members)
	reg := registry.New()
	srv := server.New(addr, "", view, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	// Give the listener a moment to bind before the first dial.
	time.Sleep(20 * time.Millisecond)
	return addr, func() {
		cancel()
		<-done
	}
}

func mustStr(w *wire.Writer, s string) {
	ExpectWithOffset(1, w.PutStr(s)).To(Succeed())
}

var _ = Describe("end-to-end broker scenarios", func() {
	It("serves single-node produce/consume (spec §8 scenario 1)", func() {
		self := cluster.Node{ID: "node-a", Addr: "127.0.0.1:7001"}
		addr, stop := startNode(self, []cluster.Node{self})
		defer stop()

		client := qclient.New()
		ctx := context.Background()

		w := wire.NewWriter(nil)
		mustStr(w, "t1")
		res, err := client.Call(ctx, addr, wire.CreateTopic, w.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(wire.Ok))

		w = wire.NewWriter(nil)
		mustStr(w, "t1")
		w.PutBytes([]byte("hello"))
		res, err = client.Call(ctx, addr, wire.Produce, w.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(wire.Ok))

		w = wire.NewWriter(nil)
		mustStr(w, "t1")
		w.PutU32(0)
		res, err = client.Call(ctx, addr, wire.Consume, w.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(wire.Ok))
		r := wire.NewReader(res.Payload)
		payload, ok := r.GetBytes()
		Expect(ok).To(BeTrue())
		Expect(string(payload)).To(Equal("hello"))

		res, err = client.Call(ctx, addr, wire.Consume, w.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(wire.Empty))
	})

	It("follows a redirect transparently across two nodes (spec §8 scenario 3)", func() {
		selfA := cluster.Node{ID: "node-a"}
		selfB := cluster.Node{ID: "node-b"}

		// addresses are assigned first so both Views share the same
		// member list (id + addr), matching how a real deployment's
		// QBUS_NODES env var is identical on every node.
		lnA, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addrA := lnA.Addr().String()
		lnA.Close()
		lnB, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addrB := lnB.Addr().String()
		lnB.Close()

		selfA.Addr, selfB.Addr = addrA, addrB
		members := []cluster.Node{selfA, selfB}

		_, stopA := startNode(selfA, members)
		defer stopA()
		_, stopB := startNode(selfB, members)
		defer stopB()

		view := cluster.NewView(selfA, members)
		var topic string
		for i := 0; ; i++ {
			topic = "tX" + string(rune('a'+i%26))
			if view.IsLeader(topic) {
				break // leader is node-a; we dial node-b to force a redirect
			}
		}

		client := qclient.New()
		w := wire.NewWriter(nil)
		mustStr(w, topic)
		// Dial the non-leader (node-b); Client.Call must follow the
		// Redirect back to node-a transparently and return its Ok.
		res, err := client.Call(context.Background(), addrB, wire.CreateTopic, w.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(wire.Ok))
	})

	It("wakes a blocked Consume as soon as Produce lands (spec §8 scenario 4)", func() {
		self := cluster.Node{ID: "node-a", Addr: "127.0.0.1:7001"}
		addr, stop := startNode(self, []cluster.Node{self})
		defer stop()

		client := qclient.New()
		ctx := context.Background()

		w := wire.NewWriter(nil)
		mustStr(w, "t3")
		_, err := client.Call(ctx, addr, wire.CreateTopic, w.Bytes())
		Expect(err).NotTo(HaveOccurred())

		w = wire.NewWriter(nil)
		mustStr(w, "q3")
		w.PutU32(8)
		_, err = client.Call(ctx, addr, wire.CreateQueue, w.Bytes())
		Expect(err).NotTo(HaveOccurred())

		w = wire.NewWriter(nil)
		mustStr(w, "t3")
		mustStr(w, "q3")
		_, err = client.Call(ctx, addr, wire.BindQueue, w.Bytes())
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		resultCh := make(chan qclient.Result, 1)
		go func() {
			w := wire.NewWriter(nil)
			mustStr(w, "q3")
			w.PutU32(500)
			res, err := client.Call(context.Background(), addr, wire.Consume, w.Bytes())
			Expect(err).NotTo(HaveOccurred())
			resultCh <- res
		}()

		time.Sleep(100 * time.Millisecond)
		w = wire.NewWriter(nil)
		mustStr(w, "t3")
		w.PutBytes([]byte("z"))
		_, err = client.Call(ctx, addr, wire.Produce, w.Bytes())
		Expect(err).NotTo(HaveOccurred())

		var res qclient.Result
		Eventually(resultCh, time.Second).Should(Receive(&res))
		Expect(time.Since(start)).To(BeNumerically("<", 400*time.Millisecond))
		Expect(res.Status).To(Equal(wire.Ok))
		r := wire.NewReader(res.Payload)
		payload, ok := r.GetBytes()
		Expect(ok).To(BeTrue())
		Expect(string(payload)).To(Equal("z"))
	})

	It("times out a Consume on a queue with no producer (spec §8 scenario 5)", func() {
		self := cluster.Node{ID: "node-a", Addr: "127.0.0.1:7001"}
		addr, stop := startNode(self, []cluster.Node{self})
		defer stop()

		client := qclient.New()
		start := time.Now()
		w := wire.NewWriter(nil)
		mustStr(w, "empty")
		w.PutU32(200)
		res, err := client.Call(context.Background(), addr, wire.Consume, w.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(wire.Empty))
		Expect(time.Since(start)).To(BeNumerically(">=", 200*time.Millisecond))
	})
})
