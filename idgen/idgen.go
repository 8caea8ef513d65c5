package idgen

import (
	"errors"
	"hash/fnv"
	"net"
	"os"
	"strconv"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// NewWorker builds an id worker which also works on hosts without a private address.
func NewWorker() *sonyflake.Sonyflake {
	return sonyflake.NewSonyflake(sonyflake.Settings{MachineID: machineID})
}

func NextID(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

// machineID prefers MACHINE_ID, then the lower 16 bits of a private IPv4 address, then a hash of the hostname.
func machineID() (uint16, error) {
	if v := os.Getenv("MACHINE_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return 0, err
		}
		return uint16(id), nil
	}
	if ip, err := privateIPv4(); err == nil {
		return uint16(ip[2])<<8 + uint16(ip[3]), nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(hostname))
	return uint16(h.Sum32()), nil
}

func privateIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip := ipnet.IP.To4(); ip != nil && ip.IsPrivate() {
			return ip, nil
		}
	}
	return nil, errors.New("no private ip address")
}
