package orchestration

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/scaling"
	"github.com/imamik/stratus/internal/store"
	stratustest "github.com/imamik/stratus/internal/testing"
)

var _ = Describe("Cluster lifecycle", func() {
	var s *scenario

	Context("when a cluster is created, scaled and terminated", func() {
		BeforeEach(func() {
			s = newScenario(stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
		})

		It("should walk through every status and clean up", func() {
			By("creating a cluster with groups A:2 and B:1")
			created, err := s.orch.CreateCluster(ctx, v1alpha1.ClusterSpec{
				Name:          "life",
				PluginName:    "fake",
				PluginVersion: "1.0",
				NodeGroups: []v1alpha1.NodeGroupSpec{
					{Name: "A", Count: 2, FlavorID: "cpx21", NodeProcesses: []string{"worker"}},
					{Name: "B", Count: 1, FlavorID: "cpx21", NodeProcesses: []string{"manager"}},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(s.status(created.ID)).Should(Equal(v1alpha1.StatusActive))
			Eventually(s.idle(created.ID)).Should(BeTrue())
			Expect(s.substrate.Names()).To(HaveLen(3))

			By("resizing A to 4 and adding C:3")
			_, err = s.orch.ScaleCluster(ctx, created.ID, v1alpha1.ScalingRequest{
				ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "A", Count: 4}},
				AddNodeGroups:    []v1alpha1.NodeGroupSpec{{Name: "C", Count: 3, FlavorID: "cpx11", NodeProcesses: []string{"worker"}}},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(s.status(created.ID)).Should(Equal(v1alpha1.StatusActive))
			Eventually(s.idle(created.ID)).Should(BeTrue())

			cluster := s.cluster(created.ID)
			Expect(cluster.InstanceCount()).To(Equal(8))
			Expect(s.substrate.Names()).To(HaveLen(8))

			By("terminating the cluster")
			Expect(s.orch.TerminateCluster(ctx, created.ID)).To(Succeed())
			_, err = s.store.GetCluster(ctx, created.ID)
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(s.substrate.Names()).To(BeEmpty())
		})
	})

	Context("when the engine rejects a scaling request", func() {
		var id string

		BeforeEach(func() {
			plugin := stratustest.NewMockPlugin("fake", "1.0")
			plugin.On("ValidateScaling", mock.Anything, mock.Anything, mock.MatchedBy(func(d scaling.Deltas) bool {
				return d.Additions() > 4
			})).Return(errors.New("too many nodes"))
			s = newScenario(plugin.SucceedAll())

			created, err := s.orch.CreateCluster(ctx, stratustest.ClusterSpec("reject", "fake", "1.0", 1))
			Expect(err).NotTo(HaveOccurred())
			id = created.ID
			Eventually(s.status(id)).Should(Equal(v1alpha1.StatusActive))
			Eventually(s.idle(id)).Should(BeTrue())
		})

		It("should restore Active and drop only the new groups", func() {
			_, err := s.orch.ScaleCluster(ctx, id, v1alpha1.ScalingRequest{
				AddNodeGroups: []v1alpha1.NodeGroupSpec{{Name: "big", Count: 5, FlavorID: "cpx51", NodeProcesses: []string{"worker"}}},
			})
			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())

			cluster := s.cluster(id)
			Expect(cluster.Status).To(Equal(v1alpha1.StatusActive))
			Expect(cluster.NodeGroups).To(HaveLen(2))
			_, found := cluster.NodeGroupByName("big")
			Expect(found).To(BeFalse())
		})

		It("should accept a smaller request afterwards", func() {
			_, err := s.orch.ScaleCluster(ctx, id, v1alpha1.ScalingRequest{
				AddNodeGroups: []v1alpha1.NodeGroupSpec{{Name: "small", Count: 2, FlavorID: "cpx11", NodeProcesses: []string{"worker"}}},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(s.status(id)).Should(Equal(v1alpha1.StatusActive))
			Eventually(s.idle(id)).Should(BeTrue())

			small, found := s.cluster(id).NodeGroupByName("small")
			Expect(found).To(BeTrue())
			Expect(small.Instances).To(HaveLen(2))
		})
	})

	Context("when provisioning fails in the background", func() {
		BeforeEach(func() {
			s = newScenario(stratustest.NewMockPlugin("fake", "1.0").
				FailOn("StartCluster", errors.New("service did not come up")).
				SucceedAll())
		})

		It("should park the cluster in Error and still allow termination", func() {
			created, err := s.orch.CreateCluster(ctx, stratustest.ClusterSpec("broken", "fake", "1.0", 2))
			Expect(err).NotTo(HaveOccurred())

			Eventually(s.status(created.ID)).Should(Equal(v1alpha1.StatusError))
			Expect(s.cluster(created.ID).StatusDescription).To(ContainSubstring("service did not come up"))
			Eventually(s.idle(created.ID)).Should(BeTrue())

			By("rejecting scaling of a failed cluster")
			_, err = s.orch.ScaleCluster(ctx, created.ID, v1alpha1.ScalingRequest{})
			Expect(err).To(MatchError(ErrInvalidState))

			By("terminating it")
			Expect(s.orch.TerminateCluster(ctx, created.ID)).To(Succeed())
			Expect(s.substrate.Names()).To(BeEmpty())
		})
	})
})
