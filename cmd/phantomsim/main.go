// Phantomsim is a stand-in for the phantom controller, for bench testing the
// link without Simulink. It binds a UDP port, echoes confirm-required frames
// back to the sender, and prints what it receives.
//
// The -drop flag fails every Nth confirmation on purpose, which is the
// easiest way to watch the trajectory retry path by hand.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/ahrastnik/phantomlink/internal/protocol"
	"github.com/ahrastnik/phantomlink/internal/util"
)

func main() {
	listen := flag.String("listen", ":6969", "UDP address to bind")
	drop := flag.Int("drop", 0, "fail every Nth confirmation (0 = never)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		util.EnableDebug()
	}

	addr, err := net.ResolveUDPAddr("udp", *listen)
	if err != nil {
		util.LogError("invalid listen address %q: %v", *listen, err)
		os.Exit(1)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		util.LogError("bind failed: %v", err)
		os.Exit(1)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.Close()
	}()

	pterm.Info.Printfln("phantomsim listening on %s", conn.LocalAddr())

	sim := &simulator{conn: conn, dropEvery: *drop}
	sim.run()

	util.LogInfo("phantomsim stopped")
}

// simulator tracks just enough state to answer the protocol: confirmation
// counting for the drop mode and the expected sample count of an open
// trajectory.
type simulator struct {
	conn      *net.UDPConn
	dropEvery int

	confirms int // confirmations issued so far, for the drop schedule
	expected int // samples announced by the open TRAJECTORY_START
	received int // samples seen since then
}

func (s *simulator) run() {
	buf := make([]byte, 4096)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			util.LogDebug("dropping %d-byte datagram from %s: %v", n, peer, err)
			continue
		}

		s.handle(pkt, peer)
	}
}

func (s *simulator) handle(pkt *protocol.Packet, peer *net.UDPAddr) {
	switch pkt.Kind {
	case protocol.KindStart:
		pterm.Info.Printfln("START from %s", peer)
	case protocol.KindStop:
		pterm.Info.Printfln("STOP from %s", peer)
	case protocol.KindBallPosition:
		util.LogDebug("ball at (%.1f, %.1f, %.1f)", pkt.Data[0], pkt.Data[1], pkt.Data[2])
	case protocol.KindTrajectoryStart:
		s.expected = int(pkt.Data[0])
		s.received = 0
		pterm.Info.Printfln("trajectory opened, %d samples announced", s.expected)
	case protocol.KindTrajectorySample:
		s.received++
	case protocol.KindTrajectoryEnd:
		status := fmt.Sprintf("%d/%d samples", s.received, s.expected)
		if s.received == s.expected {
			pterm.Success.Printfln("trajectory complete: %s", status)
		} else {
			pterm.Warning.Printfln("trajectory incomplete: %s", status)
		}
	default:
		util.LogDebug("unknown kind %v from %s", pkt.Kind, peer)
		return
	}

	if pkt.Kind.Confirmed() {
		s.confirm(pkt, peer)
	}
}

// confirm echoes the frame back to the sender, honoring the drop schedule.
func (s *simulator) confirm(pkt *protocol.Packet, peer *net.UDPAddr) {
	s.confirms++
	if s.dropEvery > 0 && s.confirms%s.dropEvery == 0 {
		util.LogWarning("dropping confirmation #%d (%s)", s.confirms, pkt.Kind)
		return
	}

	if _, err := s.conn.WriteToUDP(protocol.Encode(pkt), peer); err != nil {
		util.LogWarning("confirmation write failed: %v", err)
	}
}
