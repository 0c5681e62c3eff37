// Package awssnapshot provides a ResourceManagerContract backed by
// conditional item writes in DynamoDB, grounded on aws_s3/connect.go's
// aws.Config + credentials.NewStaticCredentialsProvider wiring
// (github.com/aws/aws-sdk-go-v2, .../credentials, .../service/dynamodb).
//
// "Begin" writes a marker item with a condition expression requiring it be
// absent (attribute_not_exists), giving exactly the same single-writer
// guarantee a SQL SELECT ... FOR UPDATE would; "commit" deletes the
// marker; "rollback" deletes it too, since there is no prior state to
// restore (the resource manager does not itself version application data,
// only transaction liveness).
package awssnapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sethvargo/go-retry"

	"github.com/groundworklabs/txcore"
	"github.com/groundworklabs/txcore/registry"
)

// Config configures the DynamoDB connection and marker table. ReplicaRegions,
// if set, names additional regions the marker is also written to on Begin
// and deleted from on commit or rollback (the table itself is assumed
// pre-provisioned with global tables or an equivalent in each).
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TableName       string
	ReplicaRegions  []string
}

// Manager is a ResourceManagerContract whose physical transaction is a
// marker item in Config.TableName, optionally mirrored to replicaClients.
type Manager struct {
	txcore.DefaultResourceManager

	client         *dynamodb.Client
	replicaClients []*dynamodb.Client
	table          string
}

// New connects to DynamoDB per cfg.
func New(cfg Config) *Manager {
	newClient := func(region string) *dynamodb.Client {
		return dynamodb.NewFromConfig(aws.Config{Region: region}, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		})
	}
	replicas := make([]*dynamodb.Client, len(cfg.ReplicaRegions))
	for i, region := range cfg.ReplicaRegions {
		replicas[i] = newClient(region)
	}
	return &Manager{client: newClient(cfg.Region), replicaClients: replicas, table: cfg.TableName}
}

type marker struct {
	id           string
	active       bool
	rollbackOnly bool
}

// AcquireTransactionObject rendezvouses with a marker already bound to
// this flow's registry under this Manager's identity, so a second call
// within the same flow (e.g. REQUIRED joining) observes the same marker
// rather than a fresh, inactive one. See memory.Manager for the same
// pattern applied to a simpler backend.
func (m *Manager) AcquireTransactionObject(ctx context.Context, def txcore.TransactionDefinition) (any, error) {
	name := def.Name
	if name == "" {
		name = "default"
	}
	reg, ok := registry.FromContext(ctx)
	if !ok {
		return &marker{id: name}, nil
	}
	if existing, found := reg.GetResource(m); found {
		return existing, nil
	}
	mk := &marker{id: name}
	reg.BindResource(m, mk)
	return mk, nil
}

func (m *Manager) IsExistingTransaction(ctx context.Context, tx any) bool {
	mk, ok := tx.(*marker)
	return ok && mk.active
}

// Begin retries transient DynamoDB failures (throttling, capacity errors)
// with the shared Fibonacci backoff; a ConditionalCheckFailedException is
// not transient and is returned to the caller on the first attempt.
func (m *Manager) Begin(ctx context.Context, tx any, def txcore.TransactionDefinition) error {
	mk := tx.(*marker)
	err := txcore.Retry(ctx, func(ctx context.Context) error {
		_, err := m.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(m.table),
			Item: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: mk.id},
			},
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		})
		var condFailed *types.ConditionalCheckFailedException
		if err != nil && !errors.As(err, &condFailed) {
			return retry.RetryableError(err)
		}
		return err
	}, nil)
	if err != nil {
		return fmt.Errorf("put marker item %s: %w", mk.id, err)
	}
	if err := m.mirrorMarker(ctx, mk); err != nil {
		return fmt.Errorf("mirror marker item %s to replicas: %w", mk.id, err)
	}
	mk.active = true
	return nil
}

// mirrorMarker writes mk to every configured replica region concurrently,
// mirroring the teacher's phase2Commit concurrent-replica pattern
// (common/twophasecommittransaction.go) but via the package's own
// TaskRunner wrapper rather than a bare errgroup.
func (m *Manager) mirrorMarker(ctx context.Context, mk *marker) error {
	if len(m.replicaClients) == 0 {
		return nil
	}
	tr := txcore.NewTaskRunner(ctx, len(m.replicaClients))
	for _, client := range m.replicaClients {
		client := client
		tr.Go(func(ctx context.Context) error {
			_, err := client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName: aws.String(m.table),
				Item: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: mk.id},
				},
			})
			return err
		})
	}
	return tr.Wait()
}

func (m *Manager) Commit(ctx context.Context, tx any) error {
	return m.deleteMarker(ctx, tx)
}

func (m *Manager) Rollback(ctx context.Context, tx any) error {
	return m.deleteMarker(ctx, tx)
}

func (m *Manager) deleteMarker(ctx context.Context, tx any) error {
	mk := tx.(*marker)
	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(m.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: mk.id},
		},
	})
	if err != nil {
		return fmt.Errorf("delete marker item %s: %w", mk.id, err)
	}
	if len(m.replicaClients) > 0 {
		tr := txcore.NewTaskRunner(ctx, len(m.replicaClients))
		for _, client := range m.replicaClients {
			client := client
			tr.Go(func(ctx context.Context) error {
				_, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
					TableName: aws.String(m.table),
					Key: map[string]types.AttributeValue{
						"id": &types.AttributeValueMemberS{Value: mk.id},
					},
				})
				return err
			})
		}
		if err := tr.Wait(); err != nil {
			return fmt.Errorf("delete marker item %s from replicas: %w", mk.id, err)
		}
	}
	mk.active = false
	return nil
}

func (m *Manager) SetRollbackOnly(ctx context.Context, tx any) error {
	tx.(*marker).rollbackOnly = true
	return nil
}

func (m *Manager) IsGlobalRollbackOnly(ctx context.Context, tx any) bool {
	mk, ok := tx.(*marker)
	return ok && mk.rollbackOnly
}

func (m *Manager) Cleanup(ctx context.Context, tx any) {
	if reg, ok := registry.FromContext(ctx); ok {
		reg.UnbindResource(m)
	}
}

func (m *Manager) UseSavepointForNested() bool      { return false }
func (m *Manager) CommitOnGlobalRollbackOnly() bool { return false }
