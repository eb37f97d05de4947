/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package cluster

import (
	"fmt"
	"sort"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
)

const (
	JobTypeLabelKey          = "job_runner_job_type"
	RelatedJobAnnotationKey  = "job_runner_related_job"
	JobTypeBatch             = "batch"
	JobTypeCleanup           = "cleanup"
	SecretName               = "gcs-api-key"
	SecretKey                = "gcs-api-key.json"
	secretMountPath          = "/secrets/gcs"
	secretKeyFilePath        = secretMountPath + "/" + SecretKey
	taskContainerName        = "task"
	initializerContainerName = "initializer"
	cleanupContainerName     = "cleanup"
	inputVolumeName          = "input"
	outputVolumeName         = "output"
	secretVolumeName         = "gcs-secret"
	inputMountPath           = "/input/"
	outputMountPath          = "/output/"
	cleanupSourceMountPath   = "/process-output/"
	bucketMountPath          = "/mnt"
)

type manifestOptions struct {
	namespace    string
	bucket       string
	gcsfuseImage string
	storageSize  string
	backoffLimit int32
}

func newSecretManifest(opts manifestOptions, credentials []byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      SecretName,
			Namespace: opts.namespace,
		},
		Data: map[string][]byte{
			SecretKey: credentials,
		},
	}
}

func newPvcManifest(opts manifestOptions, name string) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: opts.namespace,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(opts.storageSize),
				},
			},
		},
	}
}

// newBatchJobManifest renders the primary Job. Everything is built as typed
// objects; user-supplied strings have already passed batchjob.Validate.
func newBatchJobManifest(record *batchjob.BatchJob, opts manifestOptions) *batchv1.Job {
	task := corev1.Container{
		Name:  taskContainerName,
		Image: record.Parameters.DockerImage,
		Env:   cvtEnvMapToEnvVars(record.Parameters.EnvironmentVariables),
		VolumeMounts: []corev1.VolumeMount{
			{
				Name:      outputVolumeName,
				MountPath: outputMountPath,
			},
		},
		Resources: cvtResources(record.Parameters.Resources),
	}
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      record.Name,
			Namespace: opts.namespace,
			Labels: map[string]string{
				JobTypeLabelKey: JobTypeBatch,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To(opts.backoffLimit),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:      record.Name,
					Namespace: opts.namespace,
				},
				Spec: corev1.PodSpec{
					Containers:    []corev1.Container{task},
					RestartPolicy: corev1.RestartPolicyNever,
					Volumes: []corev1.Volume{
						pvcVolume(outputVolumeName, batchjob.OutputPvcClaimName(record.Name)),
					},
				},
			},
		},
	}
	if record.HasInputFile {
		podSpec := &job.Spec.Template.Spec
		podSpec.Volumes = append(podSpec.Volumes,
			pvcVolume(inputVolumeName, batchjob.InputPvcClaimName(record.Name)),
			secretVolume(),
		)
		podSpec.InitContainers = []corev1.Container{newInitializerContainer(record, opts)}
		podSpec.Containers[0].VolumeMounts = append(podSpec.Containers[0].VolumeMounts, corev1.VolumeMount{
			Name:      inputVolumeName,
			ReadOnly:  true,
			MountPath: inputMountPath,
		})
	}
	return job
}

// newInitializerContainer mounts the bucket with gcsfuse and unzips the input
// payload onto the input volume before the task container starts.
func newInitializerContainer(record *batchjob.BatchJob, opts manifestOptions) corev1.Container {
	command := fmt.Sprintf("gcsfuse --key-file %s %s %s && unzip -o %s/%s -d %s && fusermount -u %s",
		secretKeyFilePath, opts.bucket, bucketMountPath,
		bucketMountPath, batchjob.InputObjectKey(record.Name), inputMountPath,
		bucketMountPath)
	return corev1.Container{
		Name:    initializerContainerName,
		Image:   opts.gcsfuseImage,
		Command: []string{"/bin/sh", "-c", command},
		// gcsfuse needs the FUSE device
		SecurityContext: &corev1.SecurityContext{
			Privileged: ptr.To(true),
		},
		VolumeMounts: []corev1.VolumeMount{
			{
				Name:      secretVolumeName,
				ReadOnly:  true,
				MountPath: secretMountPath,
			},
			{
				Name:      inputVolumeName,
				MountPath: inputMountPath,
			},
		},
	}
}

// newCleanupJobManifest renders the cleanup Job: mount the bucket through
// lifecycle hooks, wait for the mountpoint, then zip the output volume into
// the bucket.
func newCleanupJobManifest(record *batchjob.BatchJob, opts manifestOptions) *batchv1.Job {
	name := batchjob.CleanupJobName(record.Name)
	mountCommand := fmt.Sprintf("gcsfuse --key-file %s %s %s", secretKeyFilePath, opts.bucket, bucketMountPath)
	zipCommand := fmt.Sprintf("while ! mountpoint -q %s; do sleep 1; done; zip -r %s/%s %s",
		bucketMountPath, bucketMountPath, batchjob.OutputObjectKey(record.Name), cleanupSourceMountPath)
	unmountCommand := fmt.Sprintf("fusermount -u %s", bucketMountPath)
	container := corev1.Container{
		Name:    cleanupContainerName,
		Image:   opts.gcsfuseImage,
		Command: []string{"/bin/sh", "-c", zipCommand},
		Lifecycle: &corev1.Lifecycle{
			PostStart: &corev1.LifecycleHandler{
				Exec: &corev1.ExecAction{
					Command: []string{"/bin/sh", "-c", mountCommand},
				},
			},
			PreStop: &corev1.LifecycleHandler{
				Exec: &corev1.ExecAction{
					Command: []string{"/bin/sh", "-c", unmountCommand},
				},
			},
		},
		SecurityContext: &corev1.SecurityContext{
			Privileged: ptr.To(true),
		},
		VolumeMounts: []corev1.VolumeMount{
			{
				Name:      secretVolumeName,
				ReadOnly:  true,
				MountPath: secretMountPath,
			},
			{
				Name:      outputVolumeName,
				ReadOnly:  true,
				MountPath: cleanupSourceMountPath,
			},
		},
	}
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: opts.namespace,
			Labels: map[string]string{
				JobTypeLabelKey: JobTypeCleanup,
			},
			Annotations: map[string]string{
				JobTypeLabelKey:         JobTypeCleanup,
				RelatedJobAnnotationKey: record.Name,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To(opts.backoffLimit),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:      name,
					Namespace: opts.namespace,
				},
				Spec: corev1.PodSpec{
					Containers:    []corev1.Container{container},
					RestartPolicy: corev1.RestartPolicyNever,
					Volumes: []corev1.Volume{
						pvcVolume(outputVolumeName, batchjob.OutputPvcClaimName(record.Name)),
						secretVolume(),
					},
				},
			},
		},
	}
}

func pvcVolume(volumeName, claimName string) corev1.Volume {
	return corev1.Volume{
		Name: volumeName,
		VolumeSource: corev1.VolumeSource{
			PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: claimName,
			},
		},
	}
}

func secretVolume() corev1.Volume {
	return corev1.Volume{
		Name: secretVolumeName,
		VolumeSource: corev1.VolumeSource{
			Secret: &corev1.SecretVolumeSource{
				SecretName: SecretName,
			},
		},
	}
}

// cvtEnvMapToEnvVars emits variables in key order so the rendered manifest is
// deterministic for a given record.
func cvtEnvMapToEnvVars(envMap map[string]string) []corev1.EnvVar {
	if len(envMap) == 0 {
		return nil
	}
	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	envs := make([]corev1.EnvVar, 0, len(keys))
	for _, key := range keys {
		envs = append(envs, corev1.EnvVar{
			Name:  key,
			Value: envMap[key],
		})
	}
	return envs
}

// cvtResources emits limits and requests only for the keys that are present.
func cvtResources(resources *batchjob.Resources) corev1.ResourceRequirements {
	result := corev1.ResourceRequirements{}
	if resources == nil {
		return result
	}
	result.Limits = cvtResourceSpec(resources.Limits)
	result.Requests = cvtResourceSpec(resources.Requests)
	return result
}

func cvtResourceSpec(spec batchjob.ResourceSpec) corev1.ResourceList {
	var list corev1.ResourceList
	if spec.CPU != "" {
		if quantity, err := resource.ParseQuantity(spec.CPU); err == nil {
			if list == nil {
				list = corev1.ResourceList{}
			}
			list[corev1.ResourceCPU] = quantity
		}
	}
	if spec.Memory != "" {
		if quantity, err := resource.ParseQuantity(spec.Memory); err == nil {
			if list == nil {
				list = corev1.ResourceList{}
			}
			list[corev1.ResourceMemory] = quantity
		}
	}
	return list
}
