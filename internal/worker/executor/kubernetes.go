package executor

import (
	"context"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/R3E-Network/service_layer/internal/domain"
)

// namespaceAccessRoleBinding is the name every granted RoleBinding uses,
// scoped per namespace so create/delete are idempotent and symmetric.
const namespaceAccessRoleBinding = "namespace-access"

// Kubernetes executes namespace-access grant/revoke operations against the
// cluster API, adopted per SPEC_FULL.md's domain-stack wiring decision
// (k8s.io/client-go + k8s.io/apimachinery, the pair every Kubernetes-facing
// example repo in the pack depends on).
type Kubernetes struct {
	Clientset kubernetes.Interface
}

func (e Kubernetes) Execute(ctx context.Context, op domain.Operation) error {
	var payload domain.KubernetesNamespaceAccessPayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return fmt.Errorf("kubernetes executor: decode payload: %w", err)
	}
	switch op.Kind {
	case domain.KindKubernetesCreateNamespaceAccess:
		return e.grant(ctx, payload.Namespace, payload.Subject)
	case domain.KindKubernetesDeleteNamespaceAccess:
		return e.revoke(ctx, payload.Namespace, payload.Subject)
	default:
		return fmt.Errorf("kubernetes executor: unsupported operation kind %s", op.Kind)
	}
}

func (e Kubernetes) grant(ctx context.Context, namespace, subject string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}}
	if _, err := e.Clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("kubernetes executor: create namespace: %w", err)
	}

	rb := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: namespaceAccessRoleBinding, Namespace: namespace},
		Subjects: []rbacv1.Subject{
			{Kind: "User", Name: subject, APIGroup: "rbac.authorization.k8s.io"},
		},
		RoleRef: rbacv1.RoleRef{
			Kind:     "ClusterRole",
			Name:     "edit",
			APIGroup: "rbac.authorization.k8s.io",
		},
	}
	_, err := e.Clientset.RbacV1().RoleBindings(namespace).Create(ctx, rb, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("kubernetes executor: create role binding: %w", err)
	}
	return nil
}

func (e Kubernetes) revoke(ctx context.Context, namespace, subject string) error {
	err := e.Clientset.RbacV1().RoleBindings(namespace).Delete(ctx, namespaceAccessRoleBinding, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("kubernetes executor: delete role binding: %w", err)
	}
	err = e.Clientset.CoreV1().Namespaces().Delete(ctx, namespace, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("kubernetes executor: delete namespace: %w", err)
	}
	return nil
}
