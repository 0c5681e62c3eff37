// Package txcore implements a resource-manager-agnostic transaction
// propagation engine: declarative propagation semantics, nested savepoints,
// suspension/resumption of an enclosing transaction, and completion
// synchronizations layered on top of any transactional resource.
//
// Concrete resource managers (relational drivers, distributed coordinators,
// message broker sessions) are out of scope for this package; they
// implement ResourceManagerContract and live in subpackages such as
// resourcemanager/memory, resourcemanager/redislock, resourcemanager/cassandralog,
// resourcemanager/kafkasession and resourcemanager/awssnapshot.
//
// The orchestration itself lives in the engine package; the per-flow
// resource/synchronization store lives in registry; callback fan-out lives
// in dispatch. This root package holds the shared data model: propagation
// and isolation enums, TransactionDefinition, TransactionStatus, the error
// taxonomy, and the SynchronizationContract/ResourceManagerContract
// interfaces that tie everything together.
package txcore

// Timeout model
//
// Engine operations are bounded by two timers:
//  1. The caller-provided context deadline/cancellation, which propagates
//     across the resource manager boundary.
//  2. TransactionDefinition.TimeoutSeconds, a hint passed through to the
//     resource manager; the engine itself never enforces it (see spec §5).
//
// A resource manager implementation is free to use the smaller of the two
// as its effective lock/commit TTL. resourcemanager/redislock reads
// neither for its TTL: its lock TTL is Options.LockTTL, and its lock
// acquisition stops on context cancellation or after Options.AcquireTimeout.
