// Package discovery finds Windows IoT Core devices on the local network.
//
// Windows Device Portal advertises itself over multicast DNS with the
// "_wdp._tcp" service type. The Scanner browses for that service with
// grandcat/zeroconf and reports each responder's name, address and port.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, device := range devices {
//	    fmt.Println(device)
//	}
//
// WaitForDevice returns as soon as a device with the given name answers:
//
//	device, err := scanner.WaitForDevice(ctx, "minwinpc")
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
