/*
Package ports defines the driven ports (interfaces) of the arbor engine.

These interfaces decouple tree execution from the systems that actually move
hardware, allowing the engine to run against in-process functions, external
processes or modules reachable over a message bus.

# Key Interfaces

  - LeafExecutor: Performs a single leaf (known node) and reports its Outcome.
  - TreeRunner: Runs behavior trees by name against a validated Library.
  - DistributedLocker: Serializes access to physical modules across runners.
*/
package ports
