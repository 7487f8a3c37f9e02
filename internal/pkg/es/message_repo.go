package es

import (
	"context"
	"errors"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/versiontype"
	"github.com/goccy/go-json"
)

type MessageSearchRepo interface {
	IndexMessage(ctx context.Context, msg *MessageES) error
	SearchMessages(ctx context.Context, queryText string, convIDs []uint64, viewerID string, seeAllPrivate bool, from, size int) ([]*MessageES, error)
}

type MessageSearchRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewMessageSearchRepo(client *elasticsearch.TypedClient) MessageSearchRepo {
	return &MessageSearchRepoImpl{client: client}
}

// IndexMessage 按消息 ID 写入文档。消息落库后不可变，
// 以消息 ID 做外部版本号，重复投递天然幂等。
func (s *MessageSearchRepoImpl) IndexMessage(ctx context.Context, msg *MessageES) error {
	docID := strconv.FormatUint(msg.ID, 10)

	_, err := s.client.Index(MessageIndex).
		Id(docID).
		Document(msg).
		Version(strconv.FormatUint(msg.ID, 10)).
		VersionType(versiontype.External).
		Do(ctx)

	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) {
			if e.Status == ConflictCode {
				return nil
			}
		}
		return err
	}

	return nil
}

// SearchMessages 在指定会话范围内做全文检索。
// 私密消息仅对发送者命中，seeAllPrivate（管理员）不过滤。
func (s *MessageSearchRepoImpl) SearchMessages(ctx context.Context, queryText string, convIDs []uint64, viewerID string, seeAllPrivate bool, from, size int) ([]*MessageES, error) {
	if len(convIDs) == 0 {
		return []*MessageES{}, nil
	}

	convValues := make([]types.FieldValue, 0, len(convIDs))
	for _, id := range convIDs {
		convValues = append(convValues, id)
	}

	boolQuery := &types.BoolQuery{
		Must: []types.Query{{
			Match: map[string]types.MatchQuery{
				"content": {Query: queryText},
			},
		}},
		Filter: []types.Query{{
			Terms: &types.TermsQuery{
				TermsQuery: map[string]types.TermsQueryField{
					"conversation_id": convValues,
				},
			},
		}},
	}

	if !seeAllPrivate {
		minShould := "1"
		boolQuery.Filter = append(boolQuery.Filter, types.Query{
			Bool: &types.BoolQuery{
				Should: []types.Query{
					{Term: map[string]types.TermQuery{"is_private": {Value: false}}},
					{Term: map[string]types.TermQuery{"sender_id": {Value: viewerID}}},
				},
				MinimumShouldMatch: minShould,
			},
		})
	}

	searchReq := s.client.Search().
		Index(MessageIndex).
		Query(&types.Query{Bool: boolQuery}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"sent_at": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size)

	return s.executeSearch(ctx, searchReq)
}

func (s *MessageSearchRepoImpl) executeSearch(ctx context.Context, req *search.Search) ([]*MessageES, error) {
	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*MessageES, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var msg MessageES
		if hit.Source_ == nil {
			continue
		}
		if err = json.Unmarshal(hit.Source_, &msg); err != nil {
			continue
		}
		results = append(results, &msg)
	}
	return results, nil
}
