package service

import (
	"Tradeline/internal/api/dto"
	"Tradeline/internal/model"
	"Tradeline/internal/pkg/es"
	"Tradeline/internal/repository"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

func uintPtr(v uint64) *uint64 { return &v }

// fakeStore 内存版持久层，供各 fake repo 共享
type fakeStore struct {
	mu         sync.Mutex
	convs      map[uint64]*model.Conversation
	byKey      map[string]*model.Conversation
	msgs       []*model.Message
	nextConvID uint64
	nextMsgID  uint64

	// 置位后下一次 Create 先插入竞争获胜方再返回唯一键冲突
	raceOnCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs: make(map[uint64]*model.Conversation),
		byKey: make(map[string]*model.Conversation),
	}
}

func (st *fakeStore) putConversation(conv *model.Conversation) *model.Conversation {
	st.nextConvID++
	cp := *conv
	cp.ID = st.nextConvID
	st.convs[cp.ID] = &cp
	st.byKey[cp.ThreadKey] = &cp
	return &cp
}

type fakeConvRepo struct{ st *fakeStore }

func (r *fakeConvRepo) Create(_ context.Context, conv *model.Conversation) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.raceOnCreate {
		r.st.raceOnCreate = false
		winner := *conv
		r.st.putConversation(&winner)
		return gorm.ErrDuplicatedKey
	}
	if _, ok := r.st.byKey[conv.ThreadKey]; ok {
		return gorm.ErrDuplicatedKey
	}
	created := r.st.putConversation(conv)
	conv.ID = created.ID
	return nil
}

func (r *fakeConvRepo) GetConversation(_ context.Context, convID uint64) (*model.Conversation, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	conv, ok := r.st.convs[convID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *fakeConvRepo) GetByThreadKey(_ context.Context, threadKey string) (*model.Conversation, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	conv, ok := r.st.byKey[threadKey]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *fakeConvRepo) ListForUser(_ context.Context, userID string) ([]*repository.ConversationItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var items []*repository.ConversationItem
	for _, conv := range r.st.convs {
		if conv.BuyerID != userID && conv.SellerID != userID {
			continue
		}
		item := &repository.ConversationItem{Conversation: *conv}
		for _, m := range r.st.msgs {
			if m.ConversationID != conv.ID {
				continue
			}
			if m.SenderID != userID && m.ReadAt == nil && !m.IsPrivate {
				item.UnreadCount++
			}
			if conv.LastMessageID != nil && m.ID == *conv.LastMessageID {
				item.LastMessage = m.Content
				item.LastSenderID = m.SenderID
				item.LastIsPrivate = m.IsPrivate
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *fakeConvRepo) RepairLastMessagePointers(_ context.Context) (int64, error) {
	return 0, nil
}

type fakeMessageRepo struct{ st *fakeStore }

func (r *fakeMessageRepo) SaveMessage(_ context.Context, msg *model.Message) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.nextMsgID++
	msg.ID = r.st.nextMsgID
	cp := *msg
	r.st.msgs = append(r.st.msgs, &cp)
	if conv, ok := r.st.convs[msg.ConversationID]; ok {
		conv.LastMessageID = &cp.ID
		conv.LastMessageAt = cp.SentAt
	}
	return nil
}

func (r *fakeMessageRepo) ListMessages(_ context.Context, convID uint64, viewerID string, seeAllPrivate bool, page, pageSize int) ([]*model.Message, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var all []*model.Message
	for _, m := range r.st.msgs {
		if m.ConversationID != convID {
			continue
		}
		if !seeAllPrivate && m.IsPrivate && m.SenderID != viewerID {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, convID uint64, readerID string, at time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var updated int64
	for _, m := range r.st.msgs {
		if m.ConversationID == convID && m.SenderID != readerID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			updated++
		}
	}
	return updated, nil
}

func (r *fakeMessageRepo) CountUnreadForUser(_ context.Context, userID string) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var total int64
	for _, m := range r.st.msgs {
		conv, ok := r.st.convs[m.ConversationID]
		if !ok || (conv.BuyerID != userID && conv.SellerID != userID) {
			continue
		}
		if m.SenderID != userID && m.ReadAt == nil && !m.IsPrivate {
			total++
		}
	}
	return total, nil
}

type fakeStoreRepo struct {
	stores   map[uint64]*model.Store
	orders   map[uint64]bool
	products map[uint64]bool
}

func (r *fakeStoreRepo) GetStore(_ context.Context, storeID uint64) (*model.Store, error) {
	store, ok := r.stores[storeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return store, nil
}

func (r *fakeStoreRepo) OrderExists(_ context.Context, orderID uint64) (bool, error) {
	return r.orders[orderID], nil
}

func (r *fakeStoreRepo) ProductExists(_ context.Context, productID uint64) (bool, error) {
	return r.products[productID], nil
}

type fakeUserRepo struct{ users map[string]*model.User }

func (r *fakeUserRepo) GetByID(_ context.Context, userID string) (*model.User, error) {
	user, ok := r.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

type fakeSearchRepo struct {
	mu      sync.Mutex
	indexed []*es.MessageES
}

func (r *fakeSearchRepo) IndexMessage(_ context.Context, msg *es.MessageES) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, msg)
	return nil
}

func (r *fakeSearchRepo) SearchMessages(_ context.Context, queryText string, convIDs []uint64, viewerID string, seeAllPrivate bool, _, size int) ([]*es.MessageES, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inScope := make(map[uint64]bool, len(convIDs))
	for _, id := range convIDs {
		inScope[id] = true
	}

	var hits []*es.MessageES
	for _, m := range r.indexed {
		if !inScope[m.ConversationID] || !strings.Contains(m.Content, queryText) {
			continue
		}
		if m.IsPrivate && !seeAllPrivate && m.SenderID != viewerID {
			continue
		}
		hits = append(hits, m)
		if len(hits) == size {
			break
		}
	}
	return hits, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []uint64
}

func (p *fakePublisher) Publish(_ context.Context, convID uint64, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, convID)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type chatFixture struct {
	svc       ChatService
	st        *fakeStore
	publisher *fakePublisher
}

// newChatFixture 搭建标准场景：u1 为买家，u2 持有 10 号店铺
func newChatFixture() *chatFixture {
	st := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewChatService(
		&fakeConvRepo{st: st},
		&fakeMessageRepo{st: st},
		&fakeStoreRepo{
			stores:   map[uint64]*model.Store{10: {ID: 10, Name: "测试店铺", OwnerID: "u2"}},
			orders:   map[uint64]bool{77: true},
			products: map[uint64]bool{5: true},
		},
		&fakeUserRepo{users: map[string]*model.User{
			"u1": {ID: "u1", Username: "buyer"},
			"u2": {ID: "u2", Username: "seller"},
			"u3": {ID: "u3", Username: "outsider"},
		}},
		&fakeSearchRepo{},
		publisher,
	)
	return &chatFixture{svc: svc, st: st, publisher: publisher}
}

var (
	buyer    = Identity{UserID: "u1"}
	seller   = Identity{UserID: "u2"}
	outsider = Identity{UserID: "u3"}
	admin    = Identity{UserID: "admin", Roles: []string{"ADMIN"}}
)

func TestFindOrCreateConversation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, created, err := f.svc.FindOrCreateConversation(ctx, buyer, &dto.FindOrCreateReq{
		TargetUserID: "u2", StoreID: 10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created {
		t.Fatal("first resolve should create")
	}
	if conv.BuyerID != "u1" || conv.SellerID != "u2" {
		t.Fatalf("roles should derive from store ownership, got buyer=%s seller=%s", conv.BuyerID, conv.SellerID)
	}
	if conv.PeerID != "u2" {
		t.Fatalf("peer of caller should be u2, got %s", conv.PeerID)
	}

	// 卖家发起同一会话：角色推导结果相同，命中既有会话
	again, created, err := f.svc.FindOrCreateConversation(ctx, seller, &dto.FindOrCreateReq{
		TargetUserID: "u1", StoreID: 10,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if created {
		t.Fatal("second resolve should reuse the conversation")
	}
	if again.ConversationID != conv.ConversationID {
		t.Fatalf("expected conversation %d, got %d", conv.ConversationID, again.ConversationID)
	}

	// 订单上下文不同则是另一个会话
	scoped, created, err := f.svc.FindOrCreateConversation(ctx, buyer, &dto.FindOrCreateReq{
		TargetUserID: "u2", StoreID: 10, OrderID: uintPtr(77),
	})
	if err != nil {
		t.Fatalf("scoped resolve failed: %v", err)
	}
	if !created || scoped.ConversationID == conv.ConversationID {
		t.Fatal("order-scoped thread should be a distinct conversation")
	}
}

func TestFindOrCreateConversationRejections(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	cases := []struct {
		name  string
		ident Identity
		req   *dto.FindOrCreateReq
		want  error
	}{
		{"self target", buyer, &dto.FindOrCreateReq{TargetUserID: "u1", StoreID: 10}, ErrTargetIsSelf},
		{"unknown target", buyer, &dto.FindOrCreateReq{TargetUserID: "ghost", StoreID: 10}, ErrTargetUserInvalid},
		{"unknown store", buyer, &dto.FindOrCreateReq{TargetUserID: "u2", StoreID: 99}, ErrStoreNotFound},
		{"neither party owns the store", buyer, &dto.FindOrCreateReq{TargetUserID: "u3", StoreID: 10}, ErrStoreRoleAmbiguous},
		{"unknown order", buyer, &dto.FindOrCreateReq{TargetUserID: "u2", StoreID: 10, OrderID: uintPtr(999)}, ErrOrderNotFound},
		{"unknown product", buyer, &dto.FindOrCreateReq{TargetUserID: "u2", StoreID: 10, ProductID: uintPtr(999)}, ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.FindOrCreateConversation(ctx, tc.ident, tc.req)
			if err != tc.want {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFindOrCreateConversationRace(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	// 唯一键冲突时应重读并返回获胜方，而不是报错
	f.st.raceOnCreate = true
	conv, created, err := f.svc.FindOrCreateConversation(ctx, buyer, &dto.FindOrCreateReq{
		TargetUserID: "u2", StoreID: 10,
	})
	if err != nil {
		t.Fatalf("race resolve failed: %v", err)
	}
	if created {
		t.Fatal("losing the race should not report a create")
	}
	if conv.ConversationID == 0 {
		t.Fatal("winner conversation should be returned")
	}
}

func mustConversation(t *testing.T, f *chatFixture) uint64 {
	t.Helper()
	conv, _, err := f.svc.FindOrCreateConversation(context.Background(), buyer, &dto.FindOrCreateReq{
		TargetUserID: "u2", StoreID: 10,
	})
	if err != nil {
		t.Fatalf("fixture conversation failed: %v", err)
	}
	return conv.ConversationID
}

func TestSendMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	convID := mustConversation(t, f)

	msg, err := f.svc.SendMessage(ctx, buyer, convID, "你好", false)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.ID == 0 || msg.SenderID != "u1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if f.publisher.count() != 1 {
		t.Fatalf("public message should broadcast once, got %d", f.publisher.count())
	}

	// 私密消息不广播
	if _, err = f.svc.SendMessage(ctx, seller, convID, "内部备注", true); err != nil {
		t.Fatalf("private send failed: %v", err)
	}
	if f.publisher.count() != 1 {
		t.Fatal("private message must not broadcast")
	}

	if _, err = f.svc.SendMessage(ctx, buyer, convID, "", false); err != ErrMessageEmpty {
		t.Fatalf("want ErrMessageEmpty, got %v", err)
	}
	if _, err = f.svc.SendMessage(ctx, buyer, convID, strings.Repeat("长", 4001), false); err != ErrMessageTooLong {
		t.Fatalf("want ErrMessageTooLong, got %v", err)
	}

	if _, err = f.svc.SendMessage(ctx, outsider, convID, "蹭进来", false); err != ErrConversationDenied {
		t.Fatalf("outsider send should be denied, got %v", err)
	}
}

func TestAccessGuard(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	convID := mustConversation(t, f)

	// 不存在与无权分别映射不同错误
	if _, err := f.svc.ListMessages(ctx, buyer, 999, 1, 20); err != ErrConversationNotFound {
		t.Fatalf("want ErrConversationNotFound, got %v", err)
	}
	if _, err := f.svc.ListMessages(ctx, outsider, convID, 1, 20); err != ErrConversationDenied {
		t.Fatalf("want ErrConversationDenied, got %v", err)
	}
	if _, err := f.svc.ListMessages(ctx, admin, convID, 1, 20); err != nil {
		t.Fatalf("admin should pass the guard: %v", err)
	}

	if f.svc.CanAccess(ctx, outsider, convID) {
		t.Fatal("realtime guard should refuse the outsider")
	}
	if !f.svc.CanAccess(ctx, seller, convID) {
		t.Fatal("realtime guard should admit a participant")
	}
	if f.svc.CanAccess(ctx, buyer, 999) {
		t.Fatal("realtime guard should refuse a missing conversation")
	}
}

func TestPrivateMessageVisibility(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	convID := mustConversation(t, f)

	if _, err := f.svc.SendMessage(ctx, buyer, convID, "公开消息", false); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, seller, convID, "私密备注", true); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// 买家看不到卖家的私密消息
	visible, err := f.svc.ListMessages(ctx, buyer, convID, 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(visible) != 1 || visible[0].Content != "公开消息" {
		t.Fatalf("buyer should see only the public message, got %d", len(visible))
	}

	// 发送者和管理员能看到
	for _, ident := range []Identity{seller, admin} {
		msgs, err := f.svc.ListMessages(ctx, ident, convID, 1, 20)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("%s should see both messages, got %d", ident.UserID, len(msgs))
		}
	}

	// 私密消息不计未读；末条为私密时对非发送方隐去预览
	total, err := f.svc.GetUnreadTotal(ctx, buyer)
	if err != nil {
		t.Fatalf("unread failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("private message must not count as unread, got %d", total)
	}

	list, err := f.svc.GetConversationList(ctx, buyer)
	if err != nil {
		t.Fatalf("conversation list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one conversation, got %d", len(list))
	}
	if list[0].LastMessage != "" {
		t.Fatalf("private preview should be hidden from the peer, got %q", list[0].LastMessage)
	}

	sellerList, err := f.svc.GetConversationList(ctx, seller)
	if err != nil {
		t.Fatalf("conversation list failed: %v", err)
	}
	if sellerList[0].LastMessage != "私密备注" {
		t.Fatalf("sender should see the private preview, got %q", sellerList[0].LastMessage)
	}
}

func TestMarkAsRead(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	convID := mustConversation(t, f)

	if _, err := f.svc.SendMessage(ctx, buyer, convID, "第一条", false); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, buyer, convID, "第二条", false); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// 自己发的消息不会被自己置读
	updated, err := f.svc.MarkAsRead(ctx, buyer, convID)
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("sender marking own messages should update 0, got %d", updated)
	}

	updated, err = f.svc.MarkAsRead(ctx, seller, convID)
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 messages marked read, got %d", updated)
	}

	// 重复置读幂等
	updated, err = f.svc.MarkAsRead(ctx, seller, convID)
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("repeat mark read should update 0, got %d", updated)
	}

	total, err := f.svc.GetUnreadTotal(ctx, seller)
	if err != nil {
		t.Fatalf("unread failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("unread should drop to 0, got %d", total)
	}
}
