// Package pc controls the one remote PC the hub knows about: waking it
// over the LAN and probing whether it is reachable.
package pc

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// WakeOnLAN sends the magic packet for mac to the LAN broadcast address.
// The packet is 6 bytes of 0xFF followed by the MAC repeated 16 times,
// sent to UDP port 9.
func WakeOnLAN(mac, broadcastIP string) error {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("parse mac %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return fmt.Errorf("mac %q: expected 6 bytes, got %d", mac, len(hw))
	}

	packet := MagicPacket(hw)

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(broadcastIP, "9"))
	if err != nil {
		return fmt.Errorf("resolve broadcast %q: %w", broadcastIP, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial broadcast: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}

	slog.Debug("Sent magic packet", "mac", mac, "broadcast", broadcastIP)
	return nil
}

// MagicPacket builds the 102-byte wake-on-LAN payload for a 6-byte MAC.
func MagicPacket(hw net.HardwareAddr) []byte {
	packet := make([]byte, 102)
	for i := 0; i < 6; i++ {
		packet[i] = 0xFF
	}
	for i := 1; i <= 16; i++ {
		copy(packet[i*6:], hw)
	}
	return packet
}

// Reachable probes a host with a TCP dial. ICMP needs raw sockets, so a
// connect attempt against common ports is the portable check. With no
// ports given it tries RDP, SSH, SMB and HTTP.
func Reachable(ip string, timeout time.Duration, ports ...int) bool {
	if len(ports) == 0 {
		ports = []int{3389, 22, 445, 80}
	}
	for _, port := range ports {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(ip, strconv.Itoa(port)), timeout)
		if err == nil {
			conn.Close()
			return true
		}
		// Refused means the host is up but the port is closed.
		if strings.Contains(err.Error(), "refused") {
			return true
		}
	}
	return false
}

// PowerOff would shut the remote PC down. Remote shutdown needs
// credentials and an agent on the target, neither of which exist yet.
func PowerOff(ip string) error {
	slog.Warn("Remote shutdown not implemented", "ip", ip)
	return fmt.Errorf("remote shutdown not implemented")
}
