package downloader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/eokit/satctl/common"
	"github.com/eokit/satctl/downloader"
)

var _ = Describe("Download", func() {
	var (
		ctx         context.Context
		destination string
		items       []common.Item
		fetchCount  int32
	)

	newItem := func(id string) common.Item {
		return common.Item{ID: id, Source: "test", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	}

	writeAsset := func(ctx context.Context, item common.Item, dir string) error {
		atomic.AddInt32(&fetchCount, 1)
		return os.WriteFile(filepath.Join(dir, "B1.tif"), []byte(item.ID), 0644)
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		destination, err = os.MkdirTemp("", "satctl-download")
		Expect(err).NotTo(HaveOccurred())
		items = []common.Item{newItem("i1"), newItem("i2"), newItem("i3")}
		atomic.StoreInt32(&fetchCount, 0)
	})

	AfterEach(func() {
		os.RemoveAll(destination)
	})

	It("partitions every input item into exactly one result slice", func() {
		fetch := func(ctx context.Context, item common.Item, dir string) error {
			if item.ID == "i2" {
				return errors.New("transport error")
			}
			return writeAsset(ctx, item, dir)
		}

		result, err := downloader.Download(ctx, items, fetch, destination, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Complete(len(items))).To(BeTrue())

		var ids []string
		for _, it := range result.Succeeded {
			ids = append(ids, it.ID)
		}
		Expect(ids).To(ConsistOf("i1", "i3"))
		Expect(result.Failed).To(HaveLen(1))
		Expect(result.Failed[0].Item.ID).To(Equal("i2"))
		Expect(result.Failed[0].Err).To(MatchError(ContainSubstring("transport error")))
	})

	It("writes the completion marker and the assets under the final directory", func() {
		result, err := downloader.Download(ctx, items[:1], writeAsset, destination, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Succeeded).To(HaveLen(1))

		Expect(filepath.Join(destination, "i1", "B1.tif")).To(BeAnExistingFile())
		Expect(filepath.Join(destination, "i1", downloader.ItemMarker)).To(BeAnExistingFile())
		Expect(downloader.Downloaded(items[0], destination)).To(BeTrue())
	})

	It("skips items already present in the destination", func() {
		_, err := downloader.Download(ctx, items, writeAsset, destination, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(3)))

		// second invocation with the same destination: no new fetch, still all succeeded
		result, err := downloader.Download(ctx, items, writeAsset, destination, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Succeeded).To(HaveLen(3))
		Expect(result.Failed).To(BeEmpty())
		Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(3)))
	})

	It("leaves no partial directory visible when a fetch is interrupted", func() {
		fetch := func(ctx context.Context, item common.Item, dir string) error {
			// partial write, then failure
			Expect(os.WriteFile(filepath.Join(dir, "B1.tif"), []byte("partial"), 0644)).To(Succeed())
			return errors.New("connection reset")
		}

		result, err := downloader.Download(ctx, items[:1], fetch, destination, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failed).To(HaveLen(1))
		Expect(result.Failed[0].Err).To(MatchError(ContainSubstring("connection reset")), "the fetch error survives the staging cleanup")

		Expect(filepath.Join(destination, "i1")).NotTo(BeADirectory())
		entries, err := os.ReadDir(destination)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty(), "no staging leftovers")
	})

	It("rejects an invalid worker count before any fetch", func() {
		var verr common.ValidationError
		_, err := downloader.Download(ctx, items, writeAsset, destination, 0)
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(0)))
	})

	It("dispatches no new item after cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := downloader.Download(cancelled, items, writeAsset, destination, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Complete(len(items))).To(BeTrue())
		Expect(result.Failed).To(HaveLen(3))
		Expect(atomic.LoadInt32(&fetchCount)).To(Equal(int32(0)))
		for _, f := range result.Failed {
			Expect(f.Err).To(MatchError(context.Canceled))
		}
	})
})
