// Command vsd runs a vehicle signal distribution node.
//
// Usage:
//
//	vsd <command> [flags]
//
// Commands:
//
//	sub     Subscribe to signals and print every update
//	pub     Set signal values and publish them to subscribers
//	dump    Print a catalog as a tree
//	shell   Interactive session on a live node
//	log     View captured protocol logs
//
// Examples:
//
//	# Print gear changes published by any node on the LAN
//	vsd sub --mdns vss.csv Vehicle.Drivetrain.Transmission.Gear
//
//	# Publish a speed to a node at a known address
//	vsd pub --peer 10.0.0.2:7460 vss.csv Vehicle.Speed Vehicle.Speed=88.5
//
//	# Run over Redis instead of direct TCP links
//	vsd sub --transport redis --redis localhost:6379 vss.csv Vehicle
package main

func main() {
	Execute()
}
