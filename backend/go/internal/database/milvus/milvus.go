package milvus

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// 集合中的字段名。
const (
	FieldID         = "id"
	FieldText       = "text"
	FieldSourceFile = "source_file"
	FieldChunkIndex = "chunk_index"
	FieldEmbedding  = "embedding"

	maxIDLength   = 64
	maxTextLength = 65535
	maxNameLength = 512
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("%w: 无法连接到 Milvus %s: %v", models.ErrVectorStore, cfg.Address, err)
			return
		}
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("%w: milvus client is nil", models.ErrVectorStore)
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("%w: milvus health check failed: %v", models.ErrVectorStore, err)
	}
	return nil
}

// CollectionName 把索引名转换为合法的 Milvus 集合名：只保留字母、数字和下划线，且不能以数字开头。
func CollectionName(index string) string {
	var b strings.Builder
	for _, r := range index {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}

// EnsureCollection 确保集合存在、维度一致并已加载。
// 新集合使用 AUTOINDEX + COSINE 索引。
func (c *MilvusClient) EnsureCollection(ctx context.Context, collName string, dim int) error {
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("%w: 检查集合 '%s' 是否存在时出错: %v", models.ErrVectorStore, collName, err)
	}

	if exists {
		coll, err := c.Client.DescribeCollection(ctx, collName)
		if err != nil {
			return fmt.Errorf("%w: 获取集合 '%s' 信息失败: %v", models.ErrVectorStore, collName, err)
		}
		if got := vectorDim(coll.Schema); got != 0 && got != dim {
			return fmt.Errorf("%w: collection %q has dimension %d, embeddings have %d", models.ErrInvalidInput, collName, got, dim)
		}
	} else {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("DocQA document chunks").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(maxIDLength)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
			WithField(entity.NewField().WithName(FieldSourceFile).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxNameLength)).
			WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("%w: 创建集合 '%s' 失败: %v", models.ErrVectorStore, collName, err)
		}
		idx, err := entity.NewIndexAUTOINDEX(entity.COSINE)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrVectorStore, err)
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("%w: 为字段 '%s' 创建索引失败: %v", models.ErrVectorStore, FieldEmbedding, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("%w: 加载 Milvus 集合 '%s' 失败: %v", models.ErrVectorStore, collName, err)
	}
	return nil
}

// vectorDim 返回 schema 中向量字段的维度，找不到时返回 0。
func vectorDim(schema *entity.Schema) int {
	if schema == nil {
		return 0
	}
	for _, f := range schema.Fields {
		if f.Name != FieldEmbedding {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
		if err != nil {
			return 0
		}
		return dim
	}
	return 0
}
