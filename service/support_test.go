package service

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"nft_auction/dao"
	"nft_auction/model"
	"nft_auction/utils"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	if err := utils.InitLogger(); err != nil {
		fmt.Println("初始化日志失败:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// newTestDB 内存SQLite测试库（限制单连接，避免每个连接各开一个内存库）
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := dao.AutoMigrate(db); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return db
}

// -------------- 测试替身 --------------

// fakeAssetRegistry 内存NFT登记处
type fakeAssetRegistry struct {
	mu          sync.Mutex
	owners      map[string]string // 合约/TokenID -> 持有者
	approved    bool
	transferErr error
	transfers   int
}

func newFakeAssetRegistry() *fakeAssetRegistry {
	return &fakeAssetRegistry{
		owners:   make(map[string]string),
		approved: true,
	}
}

func nftKey(nftContract, tokenID string) string {
	return nftContract + "/" + tokenID
}

func (f *fakeAssetRegistry) setOwner(nftContract, tokenID, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[nftKey(nftContract, tokenID)] = owner
}

func (f *fakeAssetRegistry) ownerOf(nftContract, tokenID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners[nftKey(nftContract, tokenID)]
}

func (f *fakeAssetRegistry) OwnerOf(ctx context.Context, nftContract, tokenID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[nftKey(nftContract, tokenID)]
	if !ok {
		return "", fmt.Errorf("token不存在: %s", nftKey(nftContract, tokenID))
	}
	return owner, nil
}

func (f *fakeAssetRegistry) IsApprovedOrOwner(ctx context.Context, nftContract, operator, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approved, nil
}

func (f *fakeAssetRegistry) TransferFrom(ctx context.Context, nftContract, from, to, tokenID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return "", f.transferErr
	}
	if f.owners[nftKey(nftContract, tokenID)] != from {
		return "", fmt.Errorf("from不是持有者")
	}
	f.owners[nftKey(nftContract, tokenID)] = to
	f.transfers++
	return fmt.Sprintf("0xnft%d", f.transfers), nil
}

// transferCall 一笔价值转移调用记录
type transferCall struct {
	token   string
	account string
	amount  *big.Int
}

// fakeValueTransfer 内存价值转移，按账户记净头寸：
// 托管拉入为负（资金离开账户），托管转出为正
type fakeValueTransfer struct {
	mu       sync.Mutex
	pulls    []transferCall // TransferFrom调用（进托管）
	payouts  []transferCall // Transfer调用（出托管）
	pullErr  error
	payErr   error
	seq      int
	onPayout func(recipient string, amount *big.Int) error // 转出前回调，用于校验记账顺序
}

func newFakeValueTransfer() *fakeValueTransfer {
	return &fakeValueTransfer{}
}

func (f *fakeValueTransfer) TransferFrom(ctx context.Context, token, owner string, amount *big.Int, depositRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullErr != nil {
		return "", f.pullErr
	}
	f.pulls = append(f.pulls, transferCall{token: token, account: owner, amount: new(big.Int).Set(amount)})
	f.seq++
	return fmt.Sprintf("0xpull%d", f.seq), nil
}

func (f *fakeValueTransfer) Transfer(ctx context.Context, token, recipient string, amount *big.Int) (string, error) {
	f.mu.Lock()
	onPayout := f.onPayout
	f.mu.Unlock()
	if onPayout != nil {
		if err := onPayout(recipient, amount); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil {
		return "", f.payErr
	}
	f.payouts = append(f.payouts, transferCall{token: token, account: recipient, amount: new(big.Int).Set(amount)})
	f.seq++
	return fmt.Sprintf("0xpay%d", f.seq), nil
}

// netFlow 账户净头寸（转出 - 拉入）
func (f *fakeValueTransfer) netFlow(account string) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	net := big.NewInt(0)
	for _, p := range f.pulls {
		if p.account == account {
			net.Sub(net, p.amount)
		}
	}
	for _, p := range f.payouts {
		if p.account == account {
			net.Add(net, p.amount)
		}
	}
	return net
}

// paidTo 转给账户的总金额
func (f *fakeValueTransfer) paidTo(account string) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := big.NewInt(0)
	for _, p := range f.payouts {
		if p.account == account {
			total.Add(total, p.amount)
		}
	}
	return total
}

// fakePriceSource 固定报价的预言机
type fakePriceSource struct {
	price     *big.Int
	decimals  uint8
	updatedAt time.Time
	err       error
}

func (f *fakePriceSource) LatestPrice(ctx context.Context, feedAddr string) (*big.Int, uint8, time.Time, error) {
	if f.err != nil {
		return nil, 0, time.Time{}, f.err
	}
	return f.price, f.decimals, f.updatedAt, nil
}

// -------------- 拍卖测试夹具 --------------

const (
	testOwner        = "0xAdminOwner"
	testFeeRecipient = "0xFeeVault"
	testOperator     = "0xPlatformCustody"
	testSeller       = "0xSellerAlice"
	testBidderA      = "0xBidderBob"
	testBidderB      = "0xBidderCarol"
	testNFTContract  = "0xNFTCollection"
	testTokenID      = "42"
	testChainID      = 11155111
)

// auctionFixture 组装好的全套服务 + 可拨动的时钟
type auctionFixture struct {
	db      *gorm.DB
	assets  *fakeAssetRegistry
	vt      *fakeValueTransfer
	admin   *AdminService
	escrow  *EscrowService
	auction *AuctionService
	clock   time.Time
}

// newAuctionFixture 初始化平台配置（费率250基点）并铸造测试NFT给卖家
func newAuctionFixture(t *testing.T) *auctionFixture {
	t.Helper()
	db := newTestDB(t)
	assets := newFakeAssetRegistry()
	vt := newFakeValueTransfer()
	locks := utils.NewKeyMutex()

	admin := NewAdminService(db)
	if err := admin.Initialize(context.Background(), testOwner, 250, testFeeRecipient); err != nil {
		t.Fatalf("初始化平台配置失败: %v", err)
	}

	escrow := NewEscrowService(db, vt, locks)
	auction := NewAuctionService(db, assets, vt, escrow, locks, testOperator, testChainID)

	f := &auctionFixture{
		db:      db,
		assets:  assets,
		vt:      vt,
		admin:   admin,
		escrow:  escrow,
		auction: auction,
		clock:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	auction.now = func() time.Time { return f.clock }

	assets.setOwner(testNFTContract, testTokenID, testSeller)
	return f
}

// advance 拨动时钟
func (f *auctionFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// createAuction 以默认参数创建拍卖（1小时，起拍价1e18，原生币计价）
func (f *auctionFixture) createAuction(t *testing.T) uint64 {
	t.Helper()
	id, err := f.auction.CreateAuction(context.Background(), CreateAuctionReq{
		NFTContract:   testNFTContract,
		TokenID:       testTokenID,
		SellerAddr:    testSeller,
		Duration:      3600,
		StartingPrice: eth(1),
		PaymentToken:  model.NativeToken,
	})
	if err != nil {
		t.Fatalf("创建拍卖失败: %v", err)
	}
	return id
}

// eth n个1e18（wei字符串）
func eth(n int64) string {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18)).String()
}

// mustBig 解析十进制大整数
func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("非法整数: %s", s)
	}
	return v
}
