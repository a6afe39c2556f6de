// Package deploy implements the single-invocation deployment flow of
// winiotctl: list what is installed, replace packages found in a build
// output directory, choose the startup app and reboot.
//
// A build output directory looks like
//
//	AppPackages/
//	  MyApp_1.0.0.0_ARM.appx
//	  Dependencies/
//	    ARM/
//	      Microsoft.VCLibs.ARM.14.00.appx
//
// Dependencies are sideloaded before apps. Before an app is sideloaded, the
// first installed package whose name contains the app name (the part of the
// file name before the first '_') is removed.
//
// The Deployer talks to the device through DeviceAPI, which *iotapi.Client
// implements, and reports progress through a StepFunc. The first failing
// step aborts the remaining ones.
package deploy
